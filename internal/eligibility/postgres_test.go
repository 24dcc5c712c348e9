package eligibility

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ArcticSubmarine/smart-contracts/internal/storage"
	"github.com/ArcticSubmarine/smart-contracts/internal/storage/migrations"
	"github.com/ArcticSubmarine/smart-contracts/internal/storage/postgres"
)

// setupTestDB starts a PostgreSQL container and applies the embedded
// migrations. Skipped unless docker is reachable.
func setupTestDB(t *testing.T) *postgres.Pool {
	t.Helper()

	if os.Getenv("SKIP_DB_TESTS") != "" {
		t.Skip("SKIP_DB_TESTS set")
	}

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("failed to start postgres container (docker unavailable?): %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool), "failed to run migrations")

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return pool
}

func TestPostgres_LookupUnknownAccount(t *testing.T) {
	pool := setupTestDB(t)
	store := NewPostgres(pool)
	ctx := context.Background()

	res, err := store.Lookup(ctx, common.HexToAddress("0x01"))
	require.NoError(t, err)
	require.Equal(t, uint8(0), res.Tier)
	require.False(t, res.Eligible())
}

func TestPostgres_UpsertAndLookup(t *testing.T) {
	pool := setupTestDB(t)
	store := NewPostgres(pool)
	ctx := context.Background()

	account := common.HexToAddress("0x0000000000000000000000000000000000000a11")
	limit := uint256.NewInt(15_000_000_000)

	require.NoError(t, store.Upsert(ctx, account, 2, limit))

	res, err := store.Lookup(ctx, account)
	require.NoError(t, err)
	require.Equal(t, uint8(2), res.Tier)
	require.True(t, res.Eligible())
	require.True(t, res.Limit.Eq(limit))

	// Overwrite to an uncapped tier.
	require.NoError(t, store.Upsert(ctx, account, 3, nil))
	res, err = store.Lookup(ctx, account)
	require.NoError(t, err)
	require.Equal(t, uint8(3), res.Tier)
	require.True(t, res.Unlimited())
}

func TestPostgres_Delete(t *testing.T) {
	pool := setupTestDB(t)
	store := NewPostgres(pool)
	ctx := context.Background()

	account := common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	require.NoError(t, store.Upsert(ctx, account, 1, uint256.NewInt(100)))
	require.NoError(t, store.Delete(ctx, account))

	res, err := store.Lookup(ctx, account)
	require.NoError(t, err)
	require.False(t, res.Eligible())

	// Deleting again reports the missing row.
	require.ErrorIs(t, store.Delete(ctx, account), storage.ErrNotFound)
}
