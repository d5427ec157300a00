package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"knowledge-base/internal/config"
)

func TestOpenSQLite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "nested", "kb.db")

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, Ping(context.Background(), db))
	require.NoError(t, Close(db))
	require.FileExists(t, cfg.Database.SQLitePath)
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "oracle"
	_, err := Open(context.Background(), cfg)
	require.Error(t, err)
	require.NoError(t, Close(nil))
}
