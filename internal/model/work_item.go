package model

import (
	"fmt"
	"strings"
	"time"
)

type WorkItemType string

const (
	WorkItemEpic      WorkItemType = "Epic"
	WorkItemFeature   WorkItemType = "Feature"
	WorkItemUserStory WorkItemType = "User Story"
)

// SyncedTypes are the work item types mirrored locally.
var SyncedTypes = []WorkItemType{WorkItemEpic, WorkItemFeature, WorkItemUserStory}

func (t WorkItemType) String() string { return string(t) }

func (t WorkItemType) Valid() bool {
	return t == WorkItemEpic || t == WorkItemFeature || t == WorkItemUserStory
}

// ParseWorkItemType normalizes user input ("epic", "user_story", "User Story").
func ParseWorkItemType(s string) (WorkItemType, bool) {
	switch strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s))) {
	case "epic":
		return WorkItemEpic, true
	case "feature":
		return WorkItemFeature, true
	case "user story", "story":
		return WorkItemUserStory, true
	default:
		return "", false
	}
}

// WorkItem is a mirrored remote item. ParentExternalID is stored raw and
// resolved against the mirror at read time.
type WorkItem struct {
	CustomerName     string       `db:"customer_name"      json:"customer_name"`
	ExternalID       int64        `db:"external_id"        json:"external_id"`
	Type             WorkItemType `db:"type"               json:"type"`
	Title            string       `db:"title"              json:"title"`
	State            string       `db:"state"              json:"state"`
	ParentExternalID *int64       `db:"parent_external_id" json:"parent_external_id,omitempty"`
	SyncedAt         time.Time    `db:"-"                  json:"synced_at"`
}

// DisplayName renders "<Type>: <id> - <title>".
func (w WorkItem) DisplayName() string {
	return fmt.Sprintf("%s: %d - %s", w.Type, w.ExternalID, w.Title)
}

// WorkItemView is a mirrored item with its ancestry resolved.
type WorkItemView struct {
	WorkItem
	ParentTitle      *string `json:"parent_title,omitempty"`
	ParentType       *string `json:"parent_type,omitempty"`
	GrandparentTitle *string `json:"grandparent_title,omitempty"`
	Display          string  `json:"display"`
}

// Path joins the resolved ancestry, e.g. "Epic A > Feature B > Story C".
func (v WorkItemView) Path() string {
	parts := make([]string, 0, 3)
	if v.GrandparentTitle != nil {
		parts = append(parts, *v.GrandparentTitle)
	}
	if v.ParentTitle != nil {
		parts = append(parts, *v.ParentTitle)
	}
	parts = append(parts, v.Title)
	return strings.Join(parts, " > ")
}
