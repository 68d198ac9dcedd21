package devsync_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmehdipour/worktimer/internal/service/devsync"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingCycler struct {
	incremental atomic.Int32
	full        atomic.Int32
}

func (c *countingCycler) RunCycle(_ context.Context, mode devsync.Mode) (devsync.CycleReport, error) {
	if mode == devsync.ModeFull {
		c.full.Add(1)
		return devsync.CycleReport{}, nil
	}
	if c.incremental.Add(1) == 1 {
		panic("boom")
	}
	return devsync.CycleReport{}, nil
}

func TestScheduler_SurvivesPanicsAndStops(t *testing.T) {
	c := &countingCycler{}
	s := devsync.NewScheduler(c, devsync.SchedulerConfig{IncrementalInterval: 10 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return c.incremental.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNextDaily(t *testing.T) {
	loc := time.UTC
	at := func(h, m int) time.Time { return time.Date(2024, 3, 1, h, m, 0, 0, loc) }

	assert.Equal(t, at(2, 0), devsync.NextDaily(at(1, 30), 2, loc))
	assert.Equal(t, at(2, 0).AddDate(0, 0, 1), devsync.NextDaily(at(2, 0), 2, loc))
	assert.Equal(t, at(2, 0).AddDate(0, 0, 1), devsync.NextDaily(at(23, 0), 2, loc))
}
