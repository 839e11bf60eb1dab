package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/zhouzirui/hcp-logger/backend/internal/store"
)

type DB struct {
	db      *sql.DB
	profile *store.Profile
}

// NewDB opens the database file named by profile.DSN, creating its directory
// when needed. ":memory:" keeps everything in process.
func NewDB(profile *store.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	dsn := profile.DSN
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create directory for %s", dsn)
		}
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	sqliteDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	// A single connection serialises writers and keeps ":memory:" databases
	// alive across calls.
	sqliteDB.SetMaxOpenConns(1)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
