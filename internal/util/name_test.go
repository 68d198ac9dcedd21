package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Acme":             "Acme",
		"  Acme   Corp ":   "Acme Corp",
		"Acme\tCorp\nLtd":  "Acme Corp Ltd",
		"":                 "",
		"   ":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeName(in), "input %q", in)
	}
}

func TestNewULIDIsSortable(t *testing.T) {
	a := New()
	b := New()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

func TestNewAtSameMillisecondStaysOrdered(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	prev := NewAt(at)
	for i := 0; i < 50; i++ {
		next := NewAt(at)
		assert.Less(t, prev, next)
		prev = next
	}
}
