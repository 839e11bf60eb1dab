package mysql

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"
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

	// Validate the DSN before handing it to database/sql, which only reports
	// problems on first use.
	if _, err := mysql.ParseDSN(profile.DSN); err != nil {
		return nil, errors.Wrap(err, "invalid mysql dsn")
	}

	mysqlDB, err := sql.Open("mysql", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{db: mysqlDB, profile: profile}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
