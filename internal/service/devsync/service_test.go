package devsync_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/worktimer/internal/db/dbtest"
	"github.com/jmehdipour/worktimer/internal/devops"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmehdipour/worktimer/internal/service/devsync"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConnector serves a fixed item list per organization.
type fakeConnector struct {
	mu       sync.Mutex
	items    map[string][]model.WorkItem
	fail     map[string]error
	panics   map[string]bool
	connects map[string]int
	queries  []devops.ItemQuery
	comments []string
	created  []devops.CreateOptions
}

func (f *fakeConnector) Connect(_ context.Context, creds devops.Credentials) (devops.Conn, error) {
	f.mu.Lock()
	if f.connects == nil {
		f.connects = map[string]int{}
	}
	f.connects[creds.OrgRef]++
	f.mu.Unlock()

	if f.panics[creds.OrgRef] {
		panic("connector state corrupted for " + creds.OrgRef)
	}
	if err := f.fail[creds.OrgRef]; err != nil {
		return nil, err
	}
	return &fakeConn{f: f, org: creds.OrgRef}, nil
}

type fakeConn struct {
	f   *fakeConnector
	org string
}

func (c *fakeConn) Project() string { return "Main" }

func (c *fakeConn) QueryItems(_ context.Context, _ string, q devops.ItemQuery) ([]model.WorkItem, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.queries = append(c.f.queries, q)

	var out []model.WorkItem
	for _, it := range c.f.items[c.org] {
		if q.MinID == nil || it.ExternalID > *q.MinID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *fakeConn) CreateItem(_ context.Context, _ string, _ model.WorkItemType, _ devops.Fields, opts devops.CreateOptions) (int64, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.created = append(c.f.created, opts)
	return 99, nil
}

func (c *fakeConn) UpdateItem(context.Context, string, int64, devops.Fields) error { return nil }

func (c *fakeConn) AddComment(_ context.Context, _ string, id int64, text string) error {
	c.f.mu.Lock()
	c.f.comments = append(c.f.comments, text)
	c.f.mu.Unlock()
	return nil
}

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func addCustomer(t *testing.T, dbx *sqlx.DB, name string, org, token *string) {
	t.Helper()
	_, err := repository.NewCustomersRepository(dbx).Insert(context.Background(), nil, model.CustomerVersion{
		Name: name, Wage: 10, OrgRef: org, Token: token,
		StartDate: model.NewDate(2024, 1, 1), ValidFrom: model.NewDate(2024, 1, 1),
		IsCurrent: true, CreatedAt: now,
	})
	require.NoError(t, err)
}

func newService(t *testing.T, conn *fakeConnector) (*devsync.Service, *devsync.MemoryStatusStore, *sqlx.DB) {
	dbx := dbtest.Open(t)
	status := devsync.NewMemoryStatusStore()
	svc := devsync.New(
		repository.NewCustomersRepository(dbx),
		repository.NewWorkItemsRepository(dbx),
		conn, status, zap.NewNop(),
		devsync.WithClock(func() time.Time { return now }),
		devsync.WithConcurrency(2),
	)
	return svc, status, dbx
}

func ptr[T any](v T) *T { return &v }

func TestFullThenIncremental(t *testing.T) {
	conn := &fakeConnector{items: map[string][]model.WorkItem{
		"acme": {
			{ExternalID: 1, Type: model.WorkItemEpic, Title: "Platform"},
			{ExternalID: 2, Type: model.WorkItemFeature, Title: "Billing", ParentExternalID: ptr(int64(1))},
		},
	}}
	svc, _, dbx := newService(t, conn)
	addCustomer(t, dbx, "Acme", ptr("acme"), ptr("pat"))
	ctx := context.Background()

	res, err := svc.IncrementalSync(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Items)
	assert.Nil(t, conn.queries[0].MinID, "empty mirror fetches everything")

	conn.items["acme"] = append(conn.items["acme"], model.WorkItem{
		ExternalID: 5, Type: model.WorkItemUserStory, Title: "Invoices", ParentExternalID: ptr(int64(2)),
	})
	res, err = svc.IncrementalSync(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Items)
	require.NotNil(t, conn.queries[1].MinID)
	assert.Equal(t, int64(2), *conn.queries[1].MinID)

	items, err := svc.WorkItems(ctx, "Acme", nil, "")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Platform > Billing > Invoices", items[2].Path())

	// Remote deletions only disappear on a full refresh.
	conn.items["acme"] = conn.items["acme"][:1]
	res, err = svc.FullSync(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Items)

	items, err = svc.WorkItems(ctx, "Acme", nil, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Acme", items[0].CustomerName)
}

func TestSync_MissingCredentials(t *testing.T) {
	svc, _, dbx := newService(t, &fakeConnector{})
	addCustomer(t, dbx, "Acme", ptr("none"), ptr("pat"))

	_, err := svc.FullSync(context.Background(), "Acme")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.FullSync(context.Background(), "Nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRunCycle_IsolatesFailures(t *testing.T) {
	conn := &fakeConnector{
		items: map[string][]model.WorkItem{
			"acme": {{ExternalID: 1, Type: model.WorkItemEpic, Title: "Platform"}},
		},
		fail: map[string]error{"globex": errors.Join(errors.New("dial tcp: refused"), model.ErrConnection)},
	}
	svc, status, dbx := newService(t, conn)
	addCustomer(t, dbx, "Acme", ptr("acme"), ptr("pat"))
	addCustomer(t, dbx, "Globex", ptr("globex"), ptr("pat"))
	addCustomer(t, dbx, "Initech", nil, nil)

	report, err := svc.RunCycle(context.Background(), devsync.ModeFull)
	require.NoError(t, err)
	require.Len(t, report.Synced, 1)
	assert.Equal(t, "Acme", report.Synced[0].Customer)
	assert.Equal(t, []string{"Initech"}, report.Skipped)
	assert.Contains(t, report.Failed, "Globex")

	statuses, err := status.All(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.False(t, statuses[0].Stale)
	assert.True(t, statuses[1].Stale)
	assert.Equal(t, "Globex", statuses[1].Customer)

	_, err = svc.RunCycle(context.Background(), devsync.Mode("weekly"))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestRunCycle_PanickingCustomerDoesNotStopOthers(t *testing.T) {
	conn := &fakeConnector{
		items: map[string][]model.WorkItem{
			"acme": {{ExternalID: 1, Type: model.WorkItemEpic, Title: "Platform"}},
		},
		panics: map[string]bool{"globex": true},
	}
	svc, status, dbx := newService(t, conn)
	addCustomer(t, dbx, "Acme", ptr("acme"), ptr("pat"))
	addCustomer(t, dbx, "Globex", ptr("globex"), ptr("pat"))
	ctx := context.Background()

	report, err := svc.RunCycle(ctx, devsync.ModeFull)
	require.NoError(t, err)
	require.Len(t, report.Synced, 1)
	assert.Equal(t, "Acme", report.Synced[0].Customer)
	assert.Equal(t, 1, report.Synced[0].Items)
	require.Contains(t, report.Failed, "Globex")
	assert.Contains(t, report.Failed["Globex"], "panicked")

	statuses, err := status.All(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "Acme", statuses[0].Customer)
	assert.False(t, statuses[0].Stale)
	assert.Equal(t, "Globex", statuses[1].Customer)
	assert.True(t, statuses[1].Stale)
	assert.Contains(t, statuses[1].Reason, "panicked")

	items, err := svc.WorkItems(ctx, "Acme", nil, "")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// the next cycle still reaches both customers
	_, err = svc.RunCycle(ctx, devsync.ModeIncremental)
	require.NoError(t, err)
	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, 2, conn.connects["acme"])
	assert.Equal(t, 2, conn.connects["globex"])
}

func TestPassThroughs(t *testing.T) {
	conn := &fakeConnector{}
	svc, _, dbx := newService(t, conn)
	addCustomer(t, dbx, "Acme", ptr("acme"), ptr("pat"))
	ctx := context.Background()

	require.NoError(t, svc.PostComment(ctx, "Acme", 7, "worked 2h"))
	assert.Equal(t, []string{"worked 2h"}, conn.comments)

	id, err := svc.CreateItem(ctx, "Acme", model.WorkItemFeature, devops.Fields{"System.Title": "New"},
		devops.CreateOptions{Parent: ptr(int64(12)), Markdown: true})
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
	require.Len(t, conn.created, 1)
	assert.Equal(t, int64(12), *conn.created[0].Parent)
	assert.True(t, conn.created[0].Markdown)

	require.NoError(t, svc.UpdateItem(ctx, "Acme", 99, devops.Fields{"System.State": "Done"}))
}
