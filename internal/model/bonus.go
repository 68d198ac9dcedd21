package model

// BonusRate is a global percentage (0..1) valid from StartDate through EndDate
// inclusive. A nil EndDate marks the single open-ended rate.
type BonusRate struct {
	ID        int64   `db:"id"         json:"id"`
	Percent   float64 `db:"percent"    json:"percent"`
	StartDate Date    `db:"start_date" json:"start_date"`
	EndDate   *Date   `db:"end_date"   json:"end_date,omitempty"`
}

// Covers reports whether d falls inside the rate's validity window.
func (r BonusRate) Covers(d Date) bool {
	if d.Before(r.StartDate) {
		return false
	}
	return r.EndDate == nil || !d.After(*r.EndDate)
}

// ClampPercent bounds p to [0, 1].
func ClampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
