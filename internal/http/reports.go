package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/service/report"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// customerReportHandler serves the live per-project report. The range comes
// either from "period" (week|month) or from explicit "from"/"to" dates.
func customerReportHandler(svc *report.Service, now func() time.Time, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		from, to, err := reportRange(c, now())
		if err != nil {
			return writeError(c, log, err)
		}

		rows, err := svc.CustomerReport(c.Request().Context(), from, to)
		if err != nil {
			return writeError(c, log, err)
		}

		out := make([]model.ReportRow, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.Rounded())
		}
		resp := map[string]any{
			"from":    from,
			"to":      to,
			"count":   len(out),
			"results": out,
		}

		if withTotals, _ := strconv.ParseBool(c.QueryParam("totals")); withTotals {
			totals := report.CustomerTotals(rows)
			for i := range totals {
				totals[i] = totals[i].Rounded()
			}
			resp["totals"] = totals
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func reportRange(c echo.Context, now time.Time) (model.Date, model.Date, error) {
	rawFrom := strings.TrimSpace(c.QueryParam("from"))
	rawTo := strings.TrimSpace(c.QueryParam("to"))
	if rawFrom == "" && rawTo == "" {
		return report.Range(strings.TrimSpace(c.QueryParam("period")), now)
	}

	var v model.Validator
	from, errFrom := model.ParseDate(rawFrom)
	v.Check(errFrom == nil, "from", "must be a date (YYYY-MM-DD)")
	to, errTo := model.ParseDate(rawTo)
	v.Check(errTo == nil, "to", "must be a date (YYYY-MM-DD)")
	if err := v.Err(); err != nil {
		return model.Date{}, model.Date{}, err
	}
	return from, to, nil
}
