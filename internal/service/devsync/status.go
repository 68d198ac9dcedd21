package devsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status is the last known sync outcome of one customer.
type Status struct {
	Customer string    `json:"customer"`
	Mode     Mode      `json:"mode"`
	Stale    bool      `json:"stale"`
	Reason   string    `json:"reason,omitempty"`
	Items    int       `json:"items"`
	At       time.Time `json:"at"`
}

// StatusStore remembers per-customer sync outcomes so operators can see which
// mirrors are out of date.
type StatusStore interface {
	Put(ctx context.Context, s Status) error
	All(ctx context.Context) ([]Status, error)
}

type MemoryStatusStore struct {
	mu   sync.RWMutex
	byID map[string]Status
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{byID: make(map[string]Status)}
}

func (m *MemoryStatusStore) Put(_ context.Context, s Status) error {
	m.mu.Lock()
	m.byID[s.Customer] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStatusStore) All(_ context.Context) ([]Status, error) {
	m.mu.RLock()
	out := make([]Status, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sortStatuses(out)
	return out, nil
}

// RedisStatusStore keeps one JSON value per customer under KeyPrefix. Entries
// expire after ttl so customers that were removed eventually disappear.
type RedisStatusStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStatusStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStatusStore {
	if prefix == "" {
		prefix = "worktimer:sync:"
	}
	return &RedisStatusStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStatusStore) Put(ctx context.Context, s Status) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.prefix+s.Customer, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set status: %w", err)
	}
	return nil
}

func (r *RedisStatusStore) All(ctx context.Context) ([]Status, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan status: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis mget status: %w", err)
	}

	out := make([]Status, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // expired between SCAN and MGET
		}
		var s Status
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	sortStatuses(out)
	return out, nil
}

func sortStatuses(s []Status) {
	sort.Slice(s, func(i, j int) bool { return s[i].Customer < s[j].Customer })
}
