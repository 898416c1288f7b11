package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDriver(t *testing.T) {
	for in, want := range map[string]Driver{"": DriverSQLite, "SQLite": DriverSQLite, "pgx": DriverPostgres, "postgresql": DriverPostgres} {
		got, err := ParseDriver(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDriver("mysql")
	assert.Error(t, err)
}

func TestOpenSQLiteTwice(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "x.db")
	for range 2 {
		conn, err := Open(context.Background(), DriverSQLite, dsn)
		require.NoError(t, err)
		var n int
		require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM export_runs`).Scan(&n))
		assert.Zero(t, n)
		require.NoError(t, conn.Close())
	}
}
