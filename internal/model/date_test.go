package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"2024-03-01", NewDate(2024, time.March, 1)},
		{" 2024-03-01 ", NewDate(2024, time.March, 1)},
		{"2024-03-01 00:00:00", NewDate(2024, time.March, 1)},
		{"2024-03-01T00:00:00Z", NewDate(2024, time.March, 1)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(tt.want), "ParseDate(%q) = %s, want %s", tt.in, got, tt.want)
	}

	_, err := ParseDate("03/01/2024")
	assert.Error(t, err)
}

func TestDate_KeyAndArithmetic(t *testing.T) {
	d := NewDate(2024, time.March, 1)
	assert.Equal(t, 20240301, d.Key())
	assert.Equal(t, "2024-02-29", d.AddDays(-1).String())
	assert.True(t, d.AddDays(-1).Before(d))
	assert.Equal(t, d.AddDays(-3), MinDate(d, d.AddDays(-3)))
}

func TestDateOf_UsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, time.March, 1, 0, 30, 0, 0, loc)
	assert.Equal(t, "2024-03-01", DateOf(ts).String())
}

func TestDate_ScanAndValue(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2024-05-06"))
	assert.Equal(t, "2024-05-06", d.String())

	require.NoError(t, d.Scan([]byte("2024-05-07")))
	assert.Equal(t, "2024-05-07", d.String())

	require.NoError(t, d.Scan(time.Date(2024, 5, 8, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-08", d.String())

	assert.Error(t, d.Scan(42))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-08", v)
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Start Date  `json:"start"`
		End   *Date `json:"end,omitempty"`
	}

	b, err := json.Marshal(payload{Start: NewDate(2024, 1, 2)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-01-02"}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2024-02-03","end":"2024-02-04"}`), &p))
	assert.Equal(t, "2024-02-03", p.Start.String())
	require.NotNil(t, p.End)
	assert.Equal(t, "2024-02-04", p.End.String())
}
