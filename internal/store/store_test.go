package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open %d", i)

		var count int
		require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM runs").Scan(&count))
		assert.Zero(t, count)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	want := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
		"user_version": "2",
	}
	for name, value := range want {
		got, err := s.pragma(name)
		require.NoError(t, err)
		assert.Equal(t, value, got, name)
	}
}

func TestOpen_MigrationIndexes(t *testing.T) {
	s := createTestStore(t)

	for _, name := range []string{"idx_runs_started", "idx_runs_outcome", "idx_events_run_type"} {
		var n int
		require.NoError(t, s.DB().QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", name,
		).Scan(&n))
		assert.Equal(t, 1, n, name)
	}
}

func TestOpen_MigratesOlderDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec("DROP INDEX idx_runs_outcome")
	require.NoError(t, err)
	_, err = s.DB().Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	var n int
	require.NoError(t, s.DB().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_runs_outcome'",
	).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "runs.db"))
	assert.Error(t, err)
}

func TestClose_ZeroStore(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}
