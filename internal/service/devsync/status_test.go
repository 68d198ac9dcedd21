package devsync_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmehdipour/worktimer/internal/db"
	"github.com/jmehdipour/worktimer/internal/service/devsync"
	"github.com/jmehdipour/worktimer/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStatusStore(t *testing.T, store devsync.StatusStore) {
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, devsync.Status{Customer: "Globex", Mode: devsync.ModeFull, Stale: true, Reason: "timeout", At: at}))
	require.NoError(t, store.Put(ctx, devsync.Status{Customer: "Acme", Mode: devsync.ModeIncremental, Items: 3, At: at}))
	require.NoError(t, store.Put(ctx, devsync.Status{Customer: "Globex", Mode: devsync.ModeFull, Items: 9, At: at}))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme", all[0].Customer)
	assert.Equal(t, 3, all[0].Items)
	assert.False(t, all[1].Stale, "later outcome replaces the earlier one")
	assert.Equal(t, 9, all[1].Items)
}

func TestMemoryStatusStore(t *testing.T) {
	exerciseStatusStore(t, devsync.NewMemoryStatusStore())
}

func TestRedisStatusStore(t *testing.T) {
	addr := os.Getenv("WORKTIMER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WORKTIMER_TEST_REDIS_ADDR not set")
	}
	rdb, err := db.NewRedisClient(db.RedisOpts{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	exerciseStatusStore(t, devsync.NewRedisStatusStore(rdb, "worktimer:test:"+util.New()+":", time.Minute))
}
