// Package db selects the store driver named by a profile.
package db

import (
	"context"

	"github.com/pkg/errors"

	"github.com/zhouzirui/hcp-logger/backend/internal/store"
	"github.com/zhouzirui/hcp-logger/backend/internal/store/db/mysql"
	"github.com/zhouzirui/hcp-logger/backend/internal/store/db/postgres"
	"github.com/zhouzirui/hcp-logger/backend/internal/store/db/sqlite"
)

// NewDBDriver creates the driver for profile.Driver.
func NewDBDriver(profile *store.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite", "":
		driver, err = sqlite.NewDB(profile)
	case "mysql":
		driver, err = mysql.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}

// Open creates the driver, wraps it in a store and applies the schema.
func Open(ctx context.Context, profile *store.Profile) (*store.Store, error) {
	driver, err := NewDBDriver(profile)
	if err != nil {
		return nil, err
	}

	s := store.New(driver, profile)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
