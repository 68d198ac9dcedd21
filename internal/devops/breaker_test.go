package devops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAndProbes(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(2, time.Minute)
	b.now = func() time.Time { return now }

	assert.True(t, b.TryAcquire())
	b.OnFailure()
	assert.True(t, b.TryAcquire())
	b.OnFailure()

	assert.False(t, b.TryAcquire(), "open after threshold")

	now = now.Add(2 * time.Minute)
	assert.True(t, b.TryAcquire(), "single probe after cool down")
	assert.False(t, b.TryAcquire(), "only one probe in flight")

	b.OnFailure()
	assert.False(t, b.TryAcquire(), "failed probe reopens")

	now = now.Add(2 * time.Minute)
	assert.True(t, b.TryAcquire())
	b.OnSuccess()
	assert.True(t, b.TryAcquire())
	assert.True(t, b.TryAcquire())
}

func TestBreakers_PerOrganization(t *testing.T) {
	s := newBreakers(1, time.Minute)
	s.get("a").OnFailure()

	assert.False(t, s.get("a").TryAcquire())
	assert.True(t, s.get("b").TryAcquire())
	assert.Same(t, s.get("a"), s.get("a"))
}
