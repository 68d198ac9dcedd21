package ledger

import (
	"context"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
)

const defaultRecentLimit = 100

// Recent returns the latest entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]model.TimeEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.entries.List(ctx, repository.EntryFilter{Limit: limit})
}

// Running returns every open entry.
func (s *Service) Running(ctx context.Context) ([]model.TimeEntry, error) {
	return s.entries.List(ctx, repository.EntryFilter{OnlyOpen: true})
}
