package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	defer db.Close()

	// Parent directories are created on demand.
	_, err = os.Stat(path)
	assert.NoError(t, err)

	var journalMode string
	require.NoError(t, db.Get(&journalMode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", journalMode)

	for _, table := range []string{"articles", "custom_feeds", "scraped_sites"} {
		var count int
		require.NoError(t, db.Get(&count,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table))
		assert.Equal(t, 1, count, "missing table %s", table)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening the same file reapplies nothing and fails nothing.
	db, err = NewDB(NewConfig(path))
	require.NoError(t, err)
	defer db.Close()

	var applied int
	require.NoError(t, db.Get(&applied, "SELECT COUNT(*) FROM migrations"))
	assert.Positive(t, applied)
}
