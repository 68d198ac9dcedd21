package model

import "time"

type TimerState string

const (
	TimerIdle    TimerState = "idle"
	TimerRunning TimerState = "running"
)

func (s TimerState) String() string { return string(s) }

func (s TimerState) Valid() bool {
	return s == TimerIdle || s == TimerRunning
}

// TimeEntry is one ledger row. EndTime == nil means the timer is running.
// Wage and bonus are snapshots taken when the entry was started.
type TimeEntry struct {
	ID            int64      `json:"id"`
	CustomerID    int64      `json:"customer_id"`
	ProjectID     int64      `json:"project_id"`
	CustomerName  string     `json:"customer_name"`
	ProjectName   string     `json:"project_name"`
	DateKey       int        `json:"date_key"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	ElapsedHours  *float64   `json:"elapsed_hours,omitempty"`
	WageSnapshot  float64    `json:"wage_snapshot"`
	BonusSnapshot float64    `json:"bonus_snapshot"`
	Cost          *float64   `json:"cost,omitempty"`
	BonusAmount   *float64   `json:"bonus_amount,omitempty"`
	ExternalRef   *int64     `json:"external_ref,omitempty"`
	Comment       *string    `json:"comment,omitempty"`
}

func (e TimeEntry) Open() bool { return e.EndTime == nil }

// Derived holds the computed columns of a closed entry.
type Derived struct {
	ElapsedHours float64
	Cost         float64
	BonusAmount  float64
}

// ComputeDerived is the single place derived ledger values are calculated:
// elapsed = end - start in fractional hours, cost = elapsed * wage,
// bonus = elapsed * wage * bonus.
func ComputeDerived(start, end time.Time, wage, bonus float64) Derived {
	hours := end.Sub(start).Hours()
	return Derived{
		ElapsedHours: hours,
		Cost:         hours * wage,
		BonusAmount:  hours * wage * bonus,
	}
}

// CloseEntry returns e ended at end with derived columns filled from its snapshots.
func CloseEntry(e TimeEntry, end time.Time) TimeEntry {
	d := ComputeDerived(e.StartTime, end, e.WageSnapshot, e.BonusSnapshot)
	e.EndTime = &end
	e.ElapsedHours = &d.ElapsedHours
	e.Cost = &d.Cost
	e.BonusAmount = &d.BonusAmount
	return e
}

// HoursAt returns the stored elapsed hours of a closed entry, or the live
// elapsed time of a running one.
func (e TimeEntry) HoursAt(now time.Time) float64 {
	if e.ElapsedHours != nil {
		return *e.ElapsedHours
	}
	return now.Sub(e.StartTime).Hours()
}

// BonusAt is the bonus counterpart of HoursAt.
func (e TimeEntry) BonusAt(now time.Time) float64 {
	if e.BonusAmount != nil {
		return *e.BonusAmount
	}
	return e.HoursAt(now) * e.WageSnapshot * e.BonusSnapshot
}

// CostAt is the cost counterpart of HoursAt.
func (e TimeEntry) CostAt(now time.Time) float64 {
	if e.Cost != nil {
		return *e.Cost
	}
	return e.HoursAt(now) * e.WageSnapshot
}
