package db

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "app.db")
	db, err := OpenMigrated(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n))
	assert.Equal(t, 1, n)

	for _, table := range []string{"users", "rounds", "daily_results"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestOpenInMemory(t *testing.T) {
	db, err := OpenMigrated(":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES ('u1', 'Alice', 'x', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES ('u2', 'alice', 'x', '2026-01-01T00:00:00Z')`)
	assert.Error(t, err, "usernames are unique case-insensitively")
}

func TestMigrateSelfManagedScript(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	// A script that opens its own transaction would fail inside the one
	// Migrate wraps plain scripts in.
	fsys := fstest.MapFS{
		"sql/001_words.sql": {Data: []byte(`CREATE TABLE words (w TEXT PRIMARY KEY);
INSERT INTO words VALUES ('ocean');`)},
		"sql/002_rebuild.sql": {Data: []byte(`PRAGMA foreign_keys=OFF;
BEGIN TRANSACTION;
CREATE TABLE words_new (w TEXT PRIMARY KEY, len INTEGER NOT NULL);
INSERT INTO words_new SELECT w, length(w) FROM words;
DROP TABLE words;
ALTER TABLE words_new RENAME TO words;
COMMIT;
PRAGMA foreign_keys=ON;`)},
	}
	require.NoError(t, migrate(db, fsys))
	require.NoError(t, migrate(db, fsys), "applied scripts are skipped")

	var n int
	require.NoError(t, db.QueryRow(`SELECT len FROM words WHERE w='ocean'`).Scan(&n))
	assert.Equal(t, 5, n)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestMigrateFailureIsNotRecorded(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{"sql/001_bad.sql": {Data: []byte(`CREATE TABLE broken (`)}}
	assert.Error(t, migrate(db, fsys))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n))
	assert.Equal(t, 0, n)
}
