package command_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jmehdipour/worktimer/internal/command"
	"github.com/jmehdipour/worktimer/internal/db/dbtest"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmehdipour/worktimer/internal/service/bonus"
	"github.com/jmehdipour/worktimer/internal/service/ledger"
	"github.com/jmehdipour/worktimer/internal/service/report"
	"github.com/jmehdipour/worktimer/internal/service/versions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newBus(t *testing.T) (*command.Bus, *observer.ObservedLogs, *time.Time) {
	t.Helper()
	dbx := dbtest.Open(t)
	now := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	customers := repository.NewCustomersRepository(dbx)
	projects := repository.NewProjectsRepository(dbx)
	entries := repository.NewLedgerRepository(dbx)
	rates := repository.NewBonusRepository(dbx)

	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	bus := command.New(command.Services{
		Ledger: ledger.New(dbx, customers, projects, entries, rates, repository.NewOutboxRepository(dbx), log,
			ledger.WithClock(clock), ledger.WithLocation(time.UTC)),
		Versions: versions.New(dbx, customers, projects, entries, log, versions.WithClock(clock), versions.WithLocation(time.UTC)),
		Bonus:    bonus.New(dbx, rates, log),
		Report:   report.New(repository.NewReportsRepository(dbx), report.WithClock(clock)),
		Now:      clock,
	}, log)
	return bus, logs, &now
}

func exec(t *testing.T, bus *command.Bus, name, params string) *command.Table {
	t.Helper()
	out, err := bus.Exec(context.Background(), name, []byte(params))
	require.NoError(t, err, name)
	return out
}

func TestBus_EndToEnd(t *testing.T) {
	bus, _, now := newBus(t)

	exec(t, bus, "create_customer_version", `{"name":"Acme","wage":100,"start_date":"2024-01-01"}`)
	exec(t, bus, "create_project_version", `{"customer":"Acme","name":"Build"}`)

	started := exec(t, bus, "toggle_timer", `{"customer":"Acme","project":"Build"}`)
	assert.Equal(t, "running", started.Rows[0][0])

	*now = now.Add(90 * time.Minute)
	stopped := exec(t, bus, "toggle_timer", `{"customer":"Acme","project":"Build"}`)
	assert.Equal(t, "idle", stopped.Rows[0][0])

	recent := exec(t, bus, "recent_entries", `{}`)
	require.Len(t, recent.Rows, 1)
	assert.InDelta(t, 1.5, *recent.Rows[0][5].(*float64), 1e-9)
	assert.InDelta(t, 150, *recent.Rows[0][6].(*float64), 1e-9)
	assert.InDelta(t, 0, *recent.Rows[0][7].(*float64), 1e-9)

	rep := exec(t, bus, "customer_report", `{"period":"week"}`)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, []any{"Acme", "Build", 1.5, 150.0, 0.0, false}, rep.Rows[0])
}

func TestBus_DecodeErrors(t *testing.T) {
	bus, _, _ := newBus(t)

	_, err := bus.Decode("drop_tables", nil)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = bus.Decode("disable_customer", []byte(`{"nam":"Acme"}`))
	assert.ErrorIs(t, err, model.ErrValidation)

	cmd, err := bus.Decode("set_customer_sort_order", []byte(`{"name":"Acme","order":3}`))
	require.NoError(t, err)
	assert.Equal(t, command.SetCustomerSortOrder{Name: "Acme", Order: 3}, cmd)

	assert.NotContains(t, bus.Names(), "sync_all", "sync commands need a sync service")
	assert.Contains(t, bus.Names(), "toggle_timer")
}

func TestBus_FailuresAreLoggedWithRedactedParams(t *testing.T) {
	bus, logs, _ := newBus(t)

	_, err := bus.Dispatch(context.Background(), command.RenameCustomer{
		RenameCustomerInput: versions.RenameCustomerInput{Name: "Nobody", Token: ptr("hunter2")},
	})
	require.ErrorIs(t, err, model.ErrNotFound)

	failed := logs.FilterMessage("command failed").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	assert.Equal(t, "update_customer", fields["op"])
	params := fields["params"].(map[string]any)
	assert.Equal(t, "Nobody", params["name"])
	assert.Equal(t, "***", params["token"])
}

func TestTable_Render(t *testing.T) {
	tab := command.NewTable("customer", "hours", "comment")
	tab.Add("Acme", 1.5, (*string)(nil))
	tab.Add("Globex", 2.0, ptr("a,b"))

	var txt bytes.Buffer
	require.NoError(t, tab.WriteText(&txt))
	assert.Contains(t, txt.String(), "Acme      1.50")

	var csv bytes.Buffer
	require.NoError(t, tab.WriteCSV(&csv))
	assert.Equal(t, "customer,hours,comment\nAcme,1.50,\nGlobex,2.00,\"a,b\"\n", csv.String())
}

func ptr[T any](v T) *T { return &v }
