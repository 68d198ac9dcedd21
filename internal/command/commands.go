package command

import (
	"github.com/jmehdipour/worktimer/internal/devops"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/service/devsync"
	"github.com/jmehdipour/worktimer/internal/service/ledger"
	"github.com/jmehdipour/worktimer/internal/service/versions"
)

// Ledger

// ToggleTimer addresses the pair by id or, when ids are zero, by current
// customer and project names.
type ToggleTimer struct {
	CustomerID  int64   `json:"customer_id,omitempty"`
	ProjectID   int64   `json:"project_id,omitempty"`
	Customer    string  `json:"customer,omitempty"`
	Project     string  `json:"project,omitempty"`
	ExternalRef *int64  `json:"external_ref,omitempty"`
	Comment     *string `json:"comment,omitempty"`
}

type AbortTimer struct {
	CustomerID int64  `json:"customer_id,omitempty"`
	ProjectID  int64  `json:"project_id,omitempty"`
	Customer   string `json:"customer,omitempty"`
	Project    string `json:"project,omitempty"`
}

type CorrectEntry struct {
	ID int64 `json:"id"`
	ledger.CorrectionInput
}

type RecentEntries struct {
	Limit int `json:"limit,omitempty"`
}

type RunningEntries struct{}

func (ToggleTimer) CommandName() string    { return "toggle_timer" }
func (AbortTimer) CommandName() string     { return "abort_timer" }
func (CorrectEntry) CommandName() string   { return "correct_entry" }
func (RecentEntries) CommandName() string  { return "recent_entries" }
func (RunningEntries) CommandName() string { return "running_entries" }

// Versions

type CreateCustomerVersion struct{ versions.CustomerInput }

type RenameCustomer struct{ versions.RenameCustomerInput }

type DisableCustomer struct {
	Name string `json:"name"`
}

type EnableCustomer struct {
	Name string `json:"name"`
}

type SetCustomerSortOrder struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type ListCustomers struct {
	IncludeHistory bool `json:"include_history,omitempty"`
}

type CreateProjectVersion struct{ versions.ProjectInput }

type RenameProject struct{ versions.RenameProjectInput }

type DisableProject struct {
	Customer string `json:"customer"`
	Name     string `json:"name"`
}

type EnableProject struct {
	Customer string `json:"customer"`
	Name     string `json:"name"`
}

type ListProjects struct {
	Customer string `json:"customer"`
}

func (CreateCustomerVersion) CommandName() string { return "create_customer_version" }
func (RenameCustomer) CommandName() string        { return "update_customer" }
func (DisableCustomer) CommandName() string       { return "disable_customer" }
func (EnableCustomer) CommandName() string        { return "enable_customer" }
func (SetCustomerSortOrder) CommandName() string  { return "set_customer_sort_order" }
func (ListCustomers) CommandName() string         { return "list_customers" }
func (CreateProjectVersion) CommandName() string  { return "create_project_version" }
func (RenameProject) CommandName() string         { return "update_project" }
func (DisableProject) CommandName() string        { return "disable_project" }
func (EnableProject) CommandName() string         { return "enable_project" }
func (ListProjects) CommandName() string          { return "list_projects" }

// Bonus

type SetBonusRate struct {
	StartDate model.Date `json:"start_date"`
	Percent   float64    `json:"percent"`
}

type BonusRateAt struct {
	Date model.Date `json:"date"`
}

type ListBonusRates struct{}

func (SetBonusRate) CommandName() string   { return "set_bonus_rate" }
func (BonusRateAt) CommandName() string    { return "bonus_rate_at" }
func (ListBonusRates) CommandName() string { return "list_bonus_rates" }

// Report

// CustomerReport uses From/To when both are set, otherwise Period
// ("week" by default, or "month").
type CustomerReport struct {
	From   *model.Date `json:"from,omitempty"`
	To     *model.Date `json:"to,omitempty"`
	Period string      `json:"period,omitempty"`
	Totals bool        `json:"totals,omitempty"`
}

func (CustomerReport) CommandName() string { return "customer_report" }

// Sync

type SyncCustomer struct {
	Customer string       `json:"customer"`
	Mode     devsync.Mode `json:"mode,omitempty"`
}

type SyncAll struct {
	Mode devsync.Mode `json:"mode,omitempty"`
}

type SyncStatus struct{}

type ListWorkItems struct {
	Customer string               `json:"customer"`
	Types    []model.WorkItemType `json:"types,omitempty"`
	Search   string               `json:"search,omitempty"`
}

type PostComment struct {
	Customer string `json:"customer"`
	ID       int64  `json:"id"`
	Text     string `json:"text"`
}

type CreateWorkItem struct {
	Customer string             `json:"customer"`
	Type     model.WorkItemType `json:"type"`
	Fields   devops.Fields      `json:"fields"`
	Parent   *int64             `json:"parent,omitempty"`
	Markdown bool               `json:"markdown,omitempty"`
}

type UpdateWorkItem struct {
	Customer string        `json:"customer"`
	ID       int64         `json:"id"`
	Fields   devops.Fields `json:"fields"`
}

func (SyncCustomer) CommandName() string   { return "sync_customer" }
func (SyncAll) CommandName() string        { return "sync_all" }
func (SyncStatus) CommandName() string     { return "sync_status" }
func (ListWorkItems) CommandName() string  { return "list_work_items" }
func (PostComment) CommandName() string    { return "save_comment" }
func (CreateWorkItem) CommandName() string { return "create_work_item" }
func (UpdateWorkItem) CommandName() string { return "update_work_item" }
