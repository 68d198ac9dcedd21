package http

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/service/devsync"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func listWorkItemsHandler(svc *devsync.Service, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var types []model.WorkItemType
		for _, raw := range c.QueryParams()["type"] {
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part == "" {
					continue
				}
				t, ok := model.ParseWorkItemType(part)
				if !ok {
					return writeError(c, log, model.NewValidationError("type", "unknown work item type "+part))
				}
				types = append(types, t)
			}
		}

		items, err := svc.WorkItems(
			c.Request().Context(),
			strings.TrimSpace(c.QueryParam("customer")),
			types,
			c.QueryParam("search"),
		)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"count":   len(items),
			"results": items,
		})
	}
}

func syncCustomerHandler(svc *devsync.Service, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		mode := devsync.Mode(strings.TrimSpace(c.QueryParam("mode")))
		if mode == "" {
			mode = devsync.ModeIncremental
		}
		if !mode.Valid() {
			return writeError(c, log, model.NewValidationError("mode", "must be full or incremental"))
		}

		res, err := svc.Sync(c.Request().Context(), c.Param("customer"), mode)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func syncStatusHandler(svc *devsync.Service, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		st, err := svc.Statuses(c.Request().Context())
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"results": st})
	}
}
