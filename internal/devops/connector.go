// Package devops talks to the Azure DevOps work item tracking API.
package devops

import (
	"context"

	"github.com/jmehdipour/worktimer/internal/model"
)

// Credentials identify one organization and the personal access token used
// to reach it.
type Credentials struct {
	OrgRef string
	Token  string
}

// ItemQuery selects work items of the given types. MinID, when set, limits
// the result to ids strictly greater than it.
type ItemQuery struct {
	Types []model.WorkItemType
	MinID *int64
}

// Fields maps field reference names (System.Title, System.State, ...) to values.
type Fields map[string]any

// CreateOptions carry the parts of a new work item that are not plain fields.
// Parent links the item under an existing one; Markdown marks the description
// as Markdown instead of HTML.
type CreateOptions struct {
	Parent   *int64
	Markdown bool
}

// Conn is an authenticated session bound to one organization.
type Conn interface {
	// Project is the default project resolved at connect time.
	Project() string
	QueryItems(ctx context.Context, project string, q ItemQuery) ([]model.WorkItem, error)
	CreateItem(ctx context.Context, project string, typ model.WorkItemType, fields Fields, opts CreateOptions) (int64, error)
	UpdateItem(ctx context.Context, project string, id int64, fields Fields) error
	AddComment(ctx context.Context, project string, id int64, text string) error
}

type Connector interface {
	Connect(ctx context.Context, creds Credentials) (Conn, error)
}
