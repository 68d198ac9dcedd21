package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmehdipour/worktimer/internal/db/dbtest"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func seedCustomerProject(t *testing.T, dbx *sqlx.DB) (model.CustomerVersion, model.ProjectVersion) {
	t.Helper()
	ctx := context.Background()

	c := model.CustomerVersion{
		Name:      "Acme",
		Wage:      100,
		StartDate: model.NewDate(2024, 1, 1),
		ValidFrom: model.NewDate(2024, 1, 1),
		IsCurrent: true,
		SortOrder: 1,
		CreatedAt: t0,
	}
	id, err := repository.NewCustomersRepository(dbx).Insert(ctx, nil, c)
	require.NoError(t, err)
	c.ID = id

	p := model.ProjectVersion{Name: "Portal", CustomerID: c.ID, IsCurrent: true}
	pid, err := repository.NewProjectsRepository(dbx).Insert(ctx, nil, p)
	require.NoError(t, err)
	p.ID = pid

	return c, p
}

func TestCustomers_RoundTrip(t *testing.T) {
	dbx := dbtest.Open(t)
	c, _ := seedCustomerProject(t, dbx)
	repo := repository.NewCustomersRepository(dbx)

	got, err := repo.GetCurrent(context.Background(), nil, "Acme")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "2024-01-01", got.StartDate.String())
	assert.Nil(t, got.ValidTo)
	assert.True(t, got.IsCurrent)
	assert.True(t, got.CreatedAt.Equal(t0))

	_, err = repo.GetCurrent(context.Background(), nil, "Nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCustomers_SecondCurrentVersionViolatesConstraint(t *testing.T) {
	dbx := dbtest.Open(t)
	c, _ := seedCustomerProject(t, dbx)

	dup := c
	dup.ID = 0
	_, err := repository.NewCustomersRepository(dbx).Insert(context.Background(), nil, dup)
	assert.ErrorIs(t, err, model.ErrConstraint)
}

func TestCustomers_UpdateCredentials(t *testing.T) {
	dbx := dbtest.Open(t)
	c, _ := seedCustomerProject(t, dbx)
	repo := repository.NewCustomersRepository(dbx)
	ctx := context.Background()

	org := "acme-org"
	require.NoError(t, repo.UpdateCredentials(ctx, nil, c.ID, &org, nil))
	require.NoError(t, repo.UpdateCredentials(ctx, nil, c.ID, nil, nil))

	got, err := repo.GetByID(ctx, nil, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OrgRef)
	assert.Equal(t, "acme-org", *got.OrgRef)
	assert.Nil(t, got.Token)
}

func TestLedger_OnlyOneOpenEntryPerPair(t *testing.T) {
	dbx := dbtest.Open(t)
	c, p := seedCustomerProject(t, dbx)
	repo := repository.NewLedgerRepository(dbx)
	ctx := context.Background()

	e := model.TimeEntry{
		CustomerID: c.ID, ProjectID: p.ID, CustomerName: c.Name, ProjectName: p.Name,
		DateKey: 20240301, StartTime: t0, WageSnapshot: 100,
	}
	id, err := repo.Insert(ctx, nil, e)
	require.NoError(t, err)

	_, err = repo.Insert(ctx, nil, e)
	assert.ErrorIs(t, err, model.ErrConstraint)

	open, err := repo.FindOpen(ctx, nil, c.ID, p.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, id, open.ID)
	assert.True(t, open.StartTime.Equal(t0))
	assert.Nil(t, open.EndTime)
}

func TestLedger_CloseIsConditional(t *testing.T) {
	dbx := dbtest.Open(t)
	c, p := seedCustomerProject(t, dbx)
	repo := repository.NewLedgerRepository(dbx)
	ctx := context.Background()

	id, err := repo.Insert(ctx, nil, model.TimeEntry{
		CustomerID: c.ID, ProjectID: p.ID, CustomerName: c.Name, ProjectName: p.Name,
		DateKey: 20240301, StartTime: t0, WageSnapshot: 100, BonusSnapshot: 0.1,
	})
	require.NoError(t, err)

	open, err := repo.GetByID(ctx, nil, id)
	require.NoError(t, err)
	closed := model.CloseEntry(*open, t0.Add(90*time.Minute))

	ok, err := repo.Close(ctx, nil, closed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Close(ctx, nil, closed)
	require.NoError(t, err)
	assert.False(t, ok, "second close must not match")

	got, err := repo.GetByID(ctx, nil, id)
	require.NoError(t, err)
	require.NotNil(t, got.ElapsedHours)
	assert.InDelta(t, 1.5, *got.ElapsedHours, 1e-9)
	assert.InDelta(t, 150, *got.Cost, 1e-9)
	assert.InDelta(t, 15, *got.BonusAmount, 1e-9)

	none, err := repo.FindOpen(ctx, nil, c.ID, p.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestLedger_GetByIDNotFound(t *testing.T) {
	dbx := dbtest.Open(t)
	_, err := repository.NewLedgerRepository(dbx).GetByID(context.Background(), nil, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBonus_RateAtAndOpenConstraint(t *testing.T) {
	dbx := dbtest.Open(t)
	repo := repository.NewBonusRepository(dbx)
	ctx := context.Background()

	open, err := repo.GetOpen(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, open)

	_, err = repo.RateAt(ctx, nil, model.NewDate(2024, 1, 1))
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = repo.Insert(ctx, nil, model.BonusRate{Percent: 0.1, StartDate: model.NewDate(2024, 1, 1)})
	require.NoError(t, err)

	_, err = repo.Insert(ctx, nil, model.BonusRate{Percent: 0.2, StartDate: model.NewDate(2024, 6, 1)})
	assert.ErrorIs(t, err, model.ErrConstraint, "two open-ended rates are rejected by the store")

	rate, err := repo.RateAt(ctx, nil, model.NewDate(2024, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.1, rate.Percent)
}

func TestWorkItems_WatermarkReplaceAppend(t *testing.T) {
	dbx := dbtest.Open(t)
	repo := repository.NewWorkItemsRepository(dbx)
	ctx := context.Background()

	_, ok, err := repo.Watermark(ctx, "Acme")
	require.NoError(t, err)
	assert.False(t, ok)

	epic := int64(1)
	feature := int64(2)
	require.NoError(t, repo.Replace(ctx, "Acme", []model.WorkItem{
		{CustomerName: "Acme", ExternalID: 1, Type: model.WorkItemEpic, Title: "Platform"},
		{CustomerName: "Acme", ExternalID: 2, Type: model.WorkItemFeature, Title: "Billing", ParentExternalID: &epic},
		{CustomerName: "Acme", ExternalID: 42, Type: model.WorkItemUserStory, Title: "Invoices", ParentExternalID: &feature},
	}, t0))

	wm, ok, err := repo.Watermark(ctx, "Acme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), wm)

	n, err := repo.Append(ctx, []model.WorkItem{
		{CustomerName: "Acme", ExternalID: 43, Type: model.WorkItemUserStory, Title: "Orphan", ParentExternalID: ptr(int64(999))},
	}, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	views, err := repo.List(ctx, repository.WorkItemFilter{Customer: "Acme"})
	require.NoError(t, err)
	require.Len(t, views, 4)

	story := views[2]
	assert.Equal(t, int64(42), story.ExternalID)
	require.NotNil(t, story.ParentTitle)
	assert.Equal(t, "Billing", *story.ParentTitle)
	require.NotNil(t, story.GrandparentTitle)
	assert.Equal(t, "Platform", *story.GrandparentTitle)
	assert.Equal(t, "User Story: 42 - Invoices", story.Display)

	orphan := views[3]
	assert.Nil(t, orphan.ParentTitle, "dangling parent stays unresolved")

	require.NoError(t, repo.Replace(ctx, "Acme", nil, t0))
	count, err := repo.Count(ctx, "Acme")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestWorkItems_ListFilters(t *testing.T) {
	dbx := dbtest.Open(t)
	repo := repository.NewWorkItemsRepository(dbx)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, "Acme", []model.WorkItem{
		{CustomerName: "Acme", ExternalID: 1, Type: model.WorkItemEpic, Title: "Platform"},
		{CustomerName: "Acme", ExternalID: 2, Type: model.WorkItemFeature, Title: "Billing"},
	}, t0))
	require.NoError(t, repo.Replace(ctx, "Globex", []model.WorkItem{
		{CustomerName: "Globex", ExternalID: 1, Type: model.WorkItemEpic, Title: "Billing rewrite"},
	}, t0))

	epics, err := repo.List(ctx, repository.WorkItemFilter{Types: []model.WorkItemType{model.WorkItemEpic}})
	require.NoError(t, err)
	assert.Len(t, epics, 2)

	billing, err := repo.List(ctx, repository.WorkItemFilter{Search: "Billing"})
	require.NoError(t, err)
	assert.Len(t, billing, 2)
}

func TestOutbox_PendingAndPublished(t *testing.T) {
	dbx := dbtest.Open(t)
	repo := repository.NewOutboxRepository(dbx)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, nil, "time_entry", "1", "ledger.timer", []byte(`{"id":"a"}`)))
	require.NoError(t, repo.Insert(ctx, nil, "time_entry", "2", "ledger.timer", []byte(`{"id":"b"}`)))

	pending, err := repo.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, `{"id":"a"}`, string(pending[0].Payload))

	require.NoError(t, repo.BumpAttempts(ctx, pending[1].ID))
	require.NoError(t, repo.MarkPublished(ctx, []int64{pending[0].ID}, t0))

	pending, err = repo.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "2", pending[0].AggregateID)
	assert.Equal(t, 1, pending[0].Attempts)
}

func ptr[T any](v T) *T { return &v }
