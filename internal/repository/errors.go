package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/worktimer/internal/model"
	"modernc.org/sqlite"
)

const (
	mysqlDuplicateEntry = 1062
	sqliteConstraint    = 19 // primary result code; extended codes keep it in the low byte
)

// mapError converts driver errors to model errors.
// context.DeadlineExceeded and context.Canceled are NOT mapped; they pass through.
func mapError(err error, entity string, key any) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %v: %w", entity, key, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", entity, key, model.ErrNotFound)
	}

	if isConstraintViolation(err) {
		return fmt.Errorf("%s %v: %w: %v", entity, key, model.ErrConstraint, err)
	}

	return fmt.Errorf("%s %v: %w", entity, key, err)
}

func isConstraintViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqliteConstraint
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
