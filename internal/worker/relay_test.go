package worker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jmehdipour/worktimer/internal/db/dbtest"
	"github.com/jmehdipour/worktimer/internal/kafka"
	"github.com/jmehdipour/worktimer/internal/metrics"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmehdipour/worktimer/internal/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	got    []kafka.Message
	failOn string // aggregate id that fails
}

func (p *recordingPublisher) Publish(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if p.failOn != "" && string(m.Key) == "time_entry:"+p.failOn {
			return errors.New("broker down")
		}
		p.got = append(p.got, m)
	}
	return nil
}

func seedOutbox(t *testing.T, repo *repository.OutboxRepositoryImpl, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		id := fmt.Sprint(i)
		require.NoError(t, repo.Insert(context.Background(), nil, "time_entry", id, "ledger.timer", []byte(`{"id":"`+id+`"}`)))
	}
}

func TestRelay_PublishesInOrder(t *testing.T) {
	dbx := dbtest.Open(t)
	repo := repository.NewOutboxRepository(dbx)
	seedOutbox(t, repo, 3)

	before := testutil.ToFloat64(metrics.OutboxPublished.WithLabelValues("published"))

	pub := &recordingPublisher{}
	relay := worker.NewRelay(repo, pub, zap.NewNop())

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, pub.got, 3)
	assert.Equal(t, "ledger.timer", pub.got[0].Topic)
	assert.Equal(t, "time_entry:1", string(pub.got[0].Key))
	assert.Equal(t, `{"id":"3"}`, string(pub.got[2].Value))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.OutboxPublished.WithLabelValues("published"))-before)

	pending, err := repo.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelay_StopsAtFailureAndBumpsAttempts(t *testing.T) {
	dbx := dbtest.Open(t)
	repo := repository.NewOutboxRepository(dbx)
	seedOutbox(t, repo, 3)

	pub := &recordingPublisher{failOn: "2"}
	relay := worker.NewRelay(repo, pub, zap.NewNop())

	n, err := relay.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)

	pending, err := repo.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "2", pending[0].AggregateID)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, 0, pending[1].Attempts, "later events wait behind the failed one")

	pub.failOn = ""
	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, pub.got, 3)
}

func TestRelay_GivesUpAfterMaxAttempts(t *testing.T) {
	dbx := dbtest.Open(t)
	repo := repository.NewOutboxRepository(dbx)
	seedOutbox(t, repo, 2)

	pub := &recordingPublisher{failOn: "1"}
	relay := worker.NewRelay(repo, pub, zap.NewNop())
	relay.MaxAttempts = 2

	for i := 0; i < 2; i++ {
		_, err := relay.Flush(context.Background())
		require.Error(t, err)
	}

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.got, 1)
	assert.Equal(t, "time_entry:2", string(pub.got[0].Key))
}

func TestLocalPublisher_FansOut(t *testing.T) {
	var a, b int
	pub := worker.NewLocalPublisher(
		func(context.Context, kafka.Message) error { a++; return nil },
		func(context.Context, kafka.Message) error { b++; return nil },
	)
	require.NoError(t, pub.Publish(context.Background(), kafka.Message{}, kafka.Message{}))
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)

	failing := worker.NewLocalPublisher(func(context.Context, kafka.Message) error { return errors.New("nope") })
	assert.Error(t, failing.Publish(context.Background(), kafka.Message{}))
}
