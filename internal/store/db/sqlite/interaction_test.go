package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/hcp-logger/backend/internal/store"
	"github.com/zhouzirui/hcp-logger/backend/internal/store/storetest"
)

func newTestStore(t *testing.T, dsn string) *store.Store {
	t.Helper()
	profile := &store.Profile{Driver: "sqlite", DSN: dsn}
	driver, err := NewDB(profile)
	require.NoError(t, err)

	s := store.New(driver, profile)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestInteractionStoreFile(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "data", "hcp.db"))
	storetest.RunInteractionSuite(t, s)
}

func TestInteractionStoreMemory(t *testing.T) {
	s := newTestStore(t, ":memory:")
	storetest.RunInteractionSuite(t, s)
}

func TestNewDBRequiresDSN(t *testing.T) {
	_, err := NewDB(&store.Profile{Driver: "sqlite"})
	require.Error(t, err)
}
