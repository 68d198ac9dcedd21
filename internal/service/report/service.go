package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
)

// Service builds the live per-project report. Running entries are valued at
// the service clock, so two calls a minute apart differ.
type Service struct {
	reports repository.ReportsRepository
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(reports repository.ReportsRepository, opts ...Option) *Service {
	s := &Service{reports: reports, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CustomerReport returns one row per current project of every current
// customer, including projects without entries in [from, to].
func (s *Service) CustomerReport(ctx context.Context, from, to model.Date) ([]model.ReportRow, error) {
	if to.Before(from) {
		return nil, model.NewValidationError("to", "must not be before from")
	}

	raw, err := s.reports.ProjectEntries(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("customer report: %w", err)
	}

	now := s.now()
	out := make([]model.ReportRow, 0)
	for _, r := range raw {
		n := len(out)
		if n == 0 || out[n-1].ProjectID != r.ProjectID {
			out = append(out, model.ReportRow{
				CustomerID:   r.CustomerID,
				CustomerName: r.CustomerName,
				ProjectID:    r.ProjectID,
				ProjectName:  r.ProjectName,
				SortOrder:    r.SortOrder,
			})
			n++
		}
		if r.Entry == nil {
			continue
		}
		row := &out[n-1]
		row.Hours += r.Entry.HoursAt(now)
		row.Cost += r.Entry.CostAt(now)
		row.BonusAmount += r.Entry.BonusAt(now)
		if r.Entry.Open() {
			row.Running = true
		}
	}
	return out, nil
}

// CustomerTotals folds report rows into one total per customer, keeping the
// row order.
func CustomerTotals(rows []model.ReportRow) []model.CustomerTotal {
	var out []model.CustomerTotal
	for _, r := range rows {
		n := len(out)
		if n == 0 || out[n-1].CustomerID != r.CustomerID {
			out = append(out, model.CustomerTotal{CustomerID: r.CustomerID, CustomerName: r.CustomerName})
			n++
		}
		t := &out[n-1]
		t.Hours += r.Hours
		t.Cost += r.Cost
		t.BonusAmount += r.BonusAmount
	}
	return out
}

// Week returns Monday through Sunday of the week containing now.
func Week(now time.Time) (model.Date, model.Date) {
	d := model.DateOf(now)
	offset := (int(d.Weekday()) + 6) % 7
	from := d.AddDays(-offset)
	return from, from.AddDays(6)
}

// Month returns the first and last day of the month containing now.
func Month(now time.Time) (model.Date, model.Date) {
	from := model.NewDate(now.Year(), now.Month(), 1)
	return from, model.NewDate(now.Year(), now.Month()+1, 0)
}

// Range resolves a named period ("week", "month") or an explicit pair.
func Range(period string, now time.Time) (model.Date, model.Date, error) {
	switch period {
	case "", "week":
		from, to := Week(now)
		return from, to, nil
	case "month":
		from, to := Month(now)
		return from, to, nil
	}
	return model.Date{}, model.Date{}, model.NewValidationError("period", "must be week or month")
}
