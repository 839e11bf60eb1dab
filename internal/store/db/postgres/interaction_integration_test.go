//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/zhouzirui/hcp-logger/backend/internal/store"
	"github.com/zhouzirui/hcp-logger/backend/internal/store/storetest"
)

func TestInteractionStorePostgres(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("hcp_logs"),
		tcpostgres.WithUsername("hcp"),
		tcpostgres.WithPassword("hcp"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	profile := &store.Profile{Driver: "postgres", DSN: dsn}
	driver, err := NewDB(profile)
	require.NoError(t, err)

	s := store.New(driver, profile)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))

	storetest.RunInteractionSuite(t, s)
}
