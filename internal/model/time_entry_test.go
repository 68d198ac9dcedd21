package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseEntry_ComputesDerivedFromSnapshots(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	e := TimeEntry{StartTime: start, WageSnapshot: 100, BonusSnapshot: 0.1}

	closed := CloseEntry(e, start.Add(90*time.Minute))

	require.NotNil(t, closed.EndTime)
	require.NotNil(t, closed.ElapsedHours)
	assert.InDelta(t, 1.5, *closed.ElapsedHours, 1e-9)
	assert.InDelta(t, 150.0, *closed.Cost, 1e-9)
	assert.InDelta(t, 15.0, *closed.BonusAmount, 1e-9)
	assert.True(t, e.Open(), "input entry must not be mutated")
	assert.False(t, closed.Open())
}

func TestTimeEntry_LiveValues(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(2 * time.Hour)
	e := TimeEntry{StartTime: start, WageSnapshot: 50, BonusSnapshot: 0.2}

	assert.InDelta(t, 2.0, e.HoursAt(now), 1e-9)
	assert.InDelta(t, 100.0, e.CostAt(now), 1e-9)
	assert.InDelta(t, 20.0, e.BonusAt(now), 1e-9)

	closed := CloseEntry(e, start.Add(time.Hour))
	assert.InDelta(t, 1.0, closed.HoursAt(now), 1e-9, "closed entries ignore now")
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2349))
	assert.Equal(t, 1.24, Round2(1.235000001))
	assert.Equal(t, 0.0, Round2(0.001))

	r := ReportRow{Hours: 1.23456, Cost: 10.005001, BonusAmount: 0.333}.Rounded()
	assert.Equal(t, 1.23, r.Hours)
	assert.Equal(t, 10.01, r.Cost)
	assert.Equal(t, 0.33, r.BonusAmount)
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0.0, ClampPercent(-0.5))
	assert.Equal(t, 0.25, ClampPercent(0.25))
	assert.Equal(t, 1.0, ClampPercent(1.5))
}

func TestBonusRate_Covers(t *testing.T) {
	end := NewDate(2024, 1, 31)
	closed := BonusRate{StartDate: NewDate(2024, 1, 1), EndDate: &end}
	open := BonusRate{StartDate: NewDate(2024, 2, 1)}

	assert.True(t, closed.Covers(NewDate(2024, 1, 31)))
	assert.False(t, closed.Covers(NewDate(2024, 2, 1)))
	assert.False(t, open.Covers(NewDate(2024, 1, 31)))
	assert.True(t, open.Covers(NewDate(2030, 1, 1)))
}
