package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// NewSQLiteConnection opens an embedded SQLite store. Pragmas (busy_timeout,
// journal_mode, foreign_keys) are passed through the DSN as _pragma params.
func NewSQLiteConnection(dsn string, opts PoolOpts) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty SQLite DSN")
	}
	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}

	if err := configure(db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
