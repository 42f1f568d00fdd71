package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInGitDirCreatesStateDirectory(t *testing.T) {
	gitDir := t.TempDir()

	store, err := OpenInGitDir(gitDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = os.Stat(filepath.Join(gitDir, DirName, FileName))
	assert.NoError(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	gitDir := t.TempDir()

	store, err := OpenInGitDir(gitDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening an existing database must not re-run migrations or
	// fail on the already-applied schema.
	store, err = OpenInGitDir(gitDir)
	require.NoError(t, err)
	defer store.Close()

	var version int
	require.NoError(t, store.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestSchemaTablesExist(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	for _, table := range []string{"event_log", "merge_base_oids"} {
		var name string
		err := store.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}
