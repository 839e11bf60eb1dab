// Package store persists confirmed interaction logs behind a pluggable
// database driver.
package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrDuplicateUID is returned by drivers when an interaction with the same
// uid already exists.
var ErrDuplicateUID = errors.New("interaction uid already exists")

// Profile selects and configures the database driver.
type Profile struct {
	Driver string // sqlite | mysql | postgres
	DSN    string
}

// Driver is implemented by every supported database.
type Driver interface {
	EnsureInteractionTables(ctx context.Context) error

	CreateInteraction(ctx context.Context, create *Interaction) (*Interaction, error)
	ListInteractions(ctx context.Context, find *FindInteraction) ([]*Interaction, error)

	Close() error
}

// Store is the persistence facade used by the services.
type Store struct {
	profile *Profile
	driver  Driver
}

func New(driver Driver, profile *Profile) *Store {
	return &Store{
		profile: profile,
		driver:  driver,
	}
}

// Migrate creates the tables when they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.driver.EnsureInteractionTables(ctx); err != nil {
		return errors.Wrapf(err, "failed to migrate %s store", s.profile.Driver)
	}
	return nil
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// EncodeList stores a string list as a JSON array; nil becomes "[]".
func EncodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode list")
	}
	return string(raw), nil
}

// DecodeList reverses EncodeList. Empty and "null" columns decode to nil.
func DecodeList(raw string) ([]string, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, errors.Wrap(err, "failed to decode list")
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}
