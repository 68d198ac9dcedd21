package command

import (
	"context"
	"time"

	"github.com/jmehdipour/worktimer/internal/devops"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/service/bonus"
	"github.com/jmehdipour/worktimer/internal/service/devsync"
	"github.com/jmehdipour/worktimer/internal/service/ledger"
	"github.com/jmehdipour/worktimer/internal/service/report"
	"github.com/jmehdipour/worktimer/internal/service/versions"
	"go.uber.org/zap"
)

// Services are the collaborators the handlers call into. Sync may be nil,
// in which case sync commands are not registered.
type Services struct {
	Ledger   *ledger.Service
	Versions *versions.Service
	Bonus    *bonus.Service
	Report   *report.Service
	Sync     *devsync.Service
	Now      func() time.Time
}

// New returns a Bus with a handler for every command.
func New(s Services, log *zap.Logger) *Bus {
	if s.Now == nil {
		s.Now = time.Now
	}
	b := NewBus(log)
	h := handlers{s}

	Register(b, h.toggleTimer)
	Register(b, h.abortTimer)
	Register(b, h.correctEntry)
	Register(b, h.recentEntries)
	Register(b, h.runningEntries)

	Register(b, h.createCustomerVersion)
	Register(b, h.renameCustomer)
	Register(b, h.disableCustomer)
	Register(b, h.enableCustomer)
	Register(b, h.setCustomerSortOrder)
	Register(b, h.listCustomers)
	Register(b, h.createProjectVersion)
	Register(b, h.renameProject)
	Register(b, h.disableProject)
	Register(b, h.enableProject)
	Register(b, h.listProjects)

	Register(b, h.setBonusRate)
	Register(b, h.bonusRateAt)
	Register(b, h.listBonusRates)

	Register(b, h.customerReport)

	if s.Sync != nil {
		Register(b, h.syncCustomer)
		Register(b, h.syncAll)
		Register(b, h.syncStatus)
		Register(b, h.listWorkItems)
		Register(b, h.postComment)
		Register(b, h.createWorkItem)
		Register(b, h.updateWorkItem)
	}
	return b
}

type handlers struct {
	Services
}

func (h handlers) resolve(ctx context.Context, customerID, projectID int64, customer, project string) (int64, int64, error) {
	if customerID > 0 && projectID > 0 {
		return customerID, projectID, nil
	}
	var v model.Validator
	v.Check(customer != "", "customer", "required")
	v.Check(project != "", "project", "required")
	if err := v.Err(); err != nil {
		return 0, 0, err
	}
	return h.Versions.Resolve(ctx, customer, project)
}

func entriesTable(entries []model.TimeEntry) *Table {
	t := NewTable("id", "customer", "project", "start", "end", "hours", "cost", "bonus", "external_ref", "comment")
	for _, e := range entries {
		t.Add(e.ID, e.CustomerName, e.ProjectName, e.StartTime, e.EndTime,
			e.ElapsedHours, e.Cost, e.BonusAmount, e.ExternalRef, e.Comment)
	}
	return t
}

func (h handlers) toggleTimer(ctx context.Context, c ToggleTimer) (*Table, error) {
	cid, pid, err := h.resolve(ctx, c.CustomerID, c.ProjectID, c.Customer, c.Project)
	if err != nil {
		return nil, err
	}
	res, err := h.Ledger.Toggle(ctx, ledger.ToggleInput{
		CustomerID: cid, ProjectID: pid, ExternalRef: c.ExternalRef, Comment: c.Comment,
	})
	if err != nil {
		return nil, err
	}
	t := NewTable("state", "entry_id", "customer", "project", "start", "end", "hours")
	t.Add(res.State.String(), res.Entry.ID, res.Entry.CustomerName, res.Entry.ProjectName,
		res.Entry.StartTime, res.Entry.EndTime, res.Entry.ElapsedHours)
	return t, nil
}

func (h handlers) abortTimer(ctx context.Context, c AbortTimer) (*Table, error) {
	cid, pid, err := h.resolve(ctx, c.CustomerID, c.ProjectID, c.Customer, c.Project)
	if err != nil {
		return nil, err
	}
	aborted, err := h.Ledger.Abort(ctx, cid, pid)
	if err != nil {
		return nil, err
	}
	t := NewTable("aborted")
	t.Add(aborted)
	return t, nil
}

func (h handlers) correctEntry(ctx context.Context, c CorrectEntry) (*Table, error) {
	if c.ID <= 0 {
		return nil, model.NewValidationError("id", "required")
	}
	e, err := h.Ledger.Correct(ctx, c.ID, c.CorrectionInput)
	if err != nil {
		return nil, err
	}
	return entriesTable([]model.TimeEntry{e}), nil
}

func (h handlers) recentEntries(ctx context.Context, c RecentEntries) (*Table, error) {
	entries, err := h.Ledger.Recent(ctx, c.Limit)
	if err != nil {
		return nil, err
	}
	return entriesTable(entries), nil
}

func (h handlers) runningEntries(ctx context.Context, _ RunningEntries) (*Table, error) {
	entries, err := h.Ledger.Running(ctx)
	if err != nil {
		return nil, err
	}
	return entriesTable(entries), nil
}

func idTable(id int64) *Table {
	t := NewTable("id")
	t.Add(id)
	return t
}

func (h handlers) createCustomerVersion(ctx context.Context, c CreateCustomerVersion) (*Table, error) {
	id, err := h.Versions.CreateCustomerVersion(ctx, c.CustomerInput)
	if err != nil {
		return nil, err
	}
	return idTable(id), nil
}

func (h handlers) renameCustomer(ctx context.Context, c RenameCustomer) (*Table, error) {
	return nil, h.Versions.RenameCustomer(ctx, c.RenameCustomerInput)
}

func (h handlers) disableCustomer(ctx context.Context, c DisableCustomer) (*Table, error) {
	return nil, h.Versions.DisableCustomer(ctx, c.Name)
}

func (h handlers) enableCustomer(ctx context.Context, c EnableCustomer) (*Table, error) {
	return nil, h.Versions.EnableCustomer(ctx, c.Name)
}

func (h handlers) setCustomerSortOrder(ctx context.Context, c SetCustomerSortOrder) (*Table, error) {
	return nil, h.Versions.SetCustomerSortOrder(ctx, c.Name, c.Order)
}

func (h handlers) listCustomers(ctx context.Context, c ListCustomers) (*Table, error) {
	list, err := h.Versions.ListCustomers(ctx, c.IncludeHistory)
	if err != nil {
		return nil, err
	}
	t := NewTable("id", "name", "wage", "start_date", "valid_from", "valid_to", "current", "sort_order", "org")
	for _, v := range list {
		t.Add(v.ID, v.Name, v.Wage, v.StartDate, v.ValidFrom, v.ValidTo, v.IsCurrent, v.SortOrder, v.OrgRef)
	}
	return t, nil
}

func (h handlers) createProjectVersion(ctx context.Context, c CreateProjectVersion) (*Table, error) {
	id, err := h.Versions.CreateProjectVersion(ctx, c.ProjectInput)
	if err != nil {
		return nil, err
	}
	return idTable(id), nil
}

func (h handlers) renameProject(ctx context.Context, c RenameProject) (*Table, error) {
	return nil, h.Versions.RenameProject(ctx, c.RenameProjectInput)
}

func (h handlers) disableProject(ctx context.Context, c DisableProject) (*Table, error) {
	return nil, h.Versions.DisableProject(ctx, c.Customer, c.Name)
}

func (h handlers) enableProject(ctx context.Context, c EnableProject) (*Table, error) {
	return nil, h.Versions.EnableProject(ctx, c.Customer, c.Name)
}

func (h handlers) listProjects(ctx context.Context, c ListProjects) (*Table, error) {
	list, err := h.Versions.ListProjects(ctx, c.Customer)
	if err != nil {
		return nil, err
	}
	t := NewTable("id", "name", "external_ref", "current")
	for _, p := range list {
		t.Add(p.ID, p.Name, p.ExternalRef, p.IsCurrent)
	}
	return t, nil
}

func (h handlers) setBonusRate(ctx context.Context, c SetBonusRate) (*Table, error) {
	id, err := h.Bonus.SetBonusRate(ctx, c.StartDate, c.Percent)
	if err != nil {
		return nil, err
	}
	return idTable(id), nil
}

func (h handlers) bonusRateAt(ctx context.Context, c BonusRateAt) (*Table, error) {
	day := c.Date
	if day.IsZero() {
		day = model.DateOf(h.Now())
	}
	p, err := h.Bonus.RateAt(ctx, day)
	if err != nil {
		return nil, err
	}
	t := NewTable("date", "percent")
	t.Add(day, p)
	return t, nil
}

func (h handlers) listBonusRates(ctx context.Context, _ ListBonusRates) (*Table, error) {
	rates, err := h.Bonus.List(ctx)
	if err != nil {
		return nil, err
	}
	t := NewTable("id", "percent", "start_date", "end_date")
	for _, r := range rates {
		t.Add(r.ID, r.Percent, r.StartDate, r.EndDate)
	}
	return t, nil
}

func (h handlers) customerReport(ctx context.Context, c CustomerReport) (*Table, error) {
	from, to, err := report.Range(c.Period, h.Now())
	if err != nil {
		return nil, err
	}
	if c.From != nil && c.To != nil {
		from, to = *c.From, *c.To
	}

	rows, err := h.Report.CustomerReport(ctx, from, to)
	if err != nil {
		return nil, err
	}

	if c.Totals {
		t := NewTable("customer", "hours", "cost", "bonus")
		for _, tot := range report.CustomerTotals(rows) {
			r := tot.Rounded()
			t.Add(r.CustomerName, r.Hours, r.Cost, r.BonusAmount)
		}
		return t, nil
	}

	t := NewTable("customer", "project", "hours", "cost", "bonus", "running")
	for _, row := range rows {
		r := row.Rounded()
		t.Add(r.CustomerName, r.ProjectName, r.Hours, r.Cost, r.BonusAmount, r.Running)
	}
	return t, nil
}

func syncMode(m devsync.Mode) devsync.Mode {
	if m == "" {
		return devsync.ModeIncremental
	}
	return m
}

func (h handlers) syncCustomer(ctx context.Context, c SyncCustomer) (*Table, error) {
	if c.Customer == "" {
		return nil, model.NewValidationError("customer", "required")
	}
	res, err := h.Sync.Sync(ctx, c.Customer, syncMode(c.Mode))
	if err != nil {
		return nil, err
	}
	t := NewTable("customer", "mode", "items")
	t.Add(res.Customer, string(res.Mode), res.Items)
	return t, nil
}

func (h handlers) syncAll(ctx context.Context, c SyncAll) (*Table, error) {
	rep, err := h.Sync.RunCycle(ctx, syncMode(c.Mode))
	if err != nil {
		return nil, err
	}
	t := NewTable("customer", "outcome", "items", "detail")
	for _, r := range rep.Synced {
		t.Add(r.Customer, "ok", r.Items, "")
	}
	for _, name := range rep.Skipped {
		t.Add(name, "skipped", 0, "no credentials")
	}
	for name, reason := range rep.Failed {
		t.Add(name, "failed", 0, reason)
	}
	return t, nil
}

func (h handlers) syncStatus(ctx context.Context, _ SyncStatus) (*Table, error) {
	all, err := h.Sync.Statuses(ctx)
	if err != nil {
		return nil, err
	}
	t := NewTable("customer", "mode", "stale", "items", "at", "reason")
	for _, s := range all {
		t.Add(s.Customer, string(s.Mode), s.Stale, s.Items, s.At, s.Reason)
	}
	return t, nil
}

func (h handlers) listWorkItems(ctx context.Context, c ListWorkItems) (*Table, error) {
	items, err := h.Sync.WorkItems(ctx, c.Customer, c.Types, c.Search)
	if err != nil {
		return nil, err
	}
	t := NewTable("id", "type", "title", "state", "parent", "path")
	for _, it := range items {
		t.Add(it.ExternalID, it.Type.String(), it.Title, it.State, it.ParentTitle, it.Path())
	}
	return t, nil
}

func (h handlers) postComment(ctx context.Context, c PostComment) (*Table, error) {
	return nil, h.Sync.PostComment(ctx, c.Customer, c.ID, c.Text)
}

func (h handlers) createWorkItem(ctx context.Context, c CreateWorkItem) (*Table, error) {
	id, err := h.Sync.CreateItem(ctx, c.Customer, c.Type, c.Fields, devops.CreateOptions{Parent: c.Parent, Markdown: c.Markdown})
	if err != nil {
		return nil, err
	}
	return idTable(id), nil
}

func (h handlers) updateWorkItem(ctx context.Context, c UpdateWorkItem) (*Table, error) {
	return nil, h.Sync.UpdateItem(ctx, c.Customer, c.ID, c.Fields)
}
