package model

import (
	"strings"
	"time"
)

// CustomerVersion is one row of a customer's version chain. Name is the chain
// identity; exactly one row per name is current while the customer is enabled.
type CustomerVersion struct {
	ID        int64     `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Wage      float64   `db:"wage"       json:"wage"`
	OrgRef    *string   `db:"org_ref"    json:"org_ref,omitempty"`
	Token     *string   `db:"token"      json:"-"`
	StartDate Date      `db:"start_date" json:"start_date"`
	ValidFrom Date      `db:"valid_from" json:"valid_from"`
	ValidTo   *Date     `db:"valid_to"   json:"valid_to,omitempty"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"-"          json:"created_at"`
}

// HasCredentials reports whether the customer can be synchronized with the
// external tracker. Blank and placeholder values ("none", "null") do not count.
func (c CustomerVersion) HasCredentials() bool {
	return present(c.OrgRef) && present(c.Token)
}

func present(s *string) bool {
	if s == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(*s)) {
	case "", "none", "null":
		return false
	}
	return true
}
