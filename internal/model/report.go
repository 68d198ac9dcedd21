package model

import "math"

// ReportRow aggregates one current project over a date range. Values keep full
// precision; round only when presenting.
type ReportRow struct {
	CustomerID   int64   `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	ProjectID    int64   `json:"project_id"`
	ProjectName  string  `json:"project_name"`
	SortOrder    int     `json:"sort_order"`
	Hours        float64 `json:"hours"`
	Cost         float64 `json:"cost"`
	BonusAmount  float64 `json:"bonus_amount"`
	Running      bool    `json:"running"`
}

// CustomerTotal sums ReportRows of one customer.
type CustomerTotal struct {
	CustomerID   int64   `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Hours        float64 `json:"hours"`
	Cost         float64 `json:"cost"`
	BonusAmount  float64 `json:"bonus_amount"`
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Rounded returns a presentation copy of r.
func (r ReportRow) Rounded() ReportRow {
	r.Hours = Round2(r.Hours)
	r.Cost = Round2(r.Cost)
	r.BonusAmount = Round2(r.BonusAmount)
	return r
}

func (t CustomerTotal) Rounded() CustomerTotal {
	t.Hours = Round2(t.Hours)
	t.Cost = Round2(t.Cost)
	t.BonusAmount = Round2(t.BonusAmount)
	return t
}
