package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("create customer: %w", NewValidationError("name", "required"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, ErrValidation, Kind(err))

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Errors[0].Field)
}

func TestValidator(t *testing.T) {
	var v Validator
	v.Check(true, "a", "fine")
	assert.NoError(t, v.Err())

	v.Check(false, "name", "required")
	v.Check(false, "wage", "must not be negative")
	err := v.Err()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "2 errors")
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrNotFound, Kind(fmt.Errorf("customer 1: %w", ErrNotFound)))
	assert.Equal(t, ErrConnection, Kind(fmt.Errorf("%w: token expired", ErrConnection)))
	assert.Nil(t, Kind(errors.New("boom")))
}

func TestParseWorkItemType(t *testing.T) {
	tests := []struct {
		in   string
		want WorkItemType
		ok   bool
	}{
		{"Epic", WorkItemEpic, true},
		{"feature", WorkItemFeature, true},
		{"user_story", WorkItemUserStory, true},
		{"User Story", WorkItemUserStory, true},
		{"bug", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseWorkItemType(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestCustomerVersion_HasCredentials(t *testing.T) {
	org, tok, none := "acme", "secret", "None"

	assert.True(t, CustomerVersion{OrgRef: &org, Token: &tok}.HasCredentials())
	assert.False(t, CustomerVersion{OrgRef: &org}.HasCredentials())
	assert.False(t, CustomerVersion{OrgRef: &org, Token: &none}.HasCredentials())
}

func TestWorkItemView_Path(t *testing.T) {
	epic, feature := "Platform", "Billing"
	v := WorkItemView{
		WorkItem:         WorkItem{ExternalID: 7, Type: WorkItemUserStory, Title: "Invoice export"},
		ParentTitle:      &feature,
		GrandparentTitle: &epic,
	}
	assert.Equal(t, "Platform > Billing > Invoice export", v.Path())
	assert.Equal(t, "User Story: 7 - Invoice export", v.DisplayName())
}
