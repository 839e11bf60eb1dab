package postgres

import (
	"database/sql"
	"fmt"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/zhouzirui/hcp-logger/backend/internal/store"
)

type DB struct {
	db      *sql.DB
	profile *store.Profile
}

func NewDB(profile *store.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{db: postgresDB, profile: profile}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
