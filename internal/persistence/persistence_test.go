package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/eventix/internal/config"
)

func TestMigrationNamesSorted(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "001_init.sql", names[0])
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	require.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestNewPostgresWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, pg.PoolHandle())
	require.Error(t, pg.Ping(context.Background()))
	pg.Close()
}

func TestRedisPing(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(context.Background(), config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "test"}, zap.NewNop())
	defer r.Close()
	require.NoError(t, r.Ping(context.Background()))
	require.Equal(t, "test", r.Prefix)

	var missing *Redis
	require.Error(t, missing.Ping(context.Background()))
}
