package migration

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFile(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func countBackups(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if strings.Contains(e.Name(), ".bak.") {
			n++
		}
	}
	return n
}

func TestRegistryAdd(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Latest())

	require.NoError(t, r.Add(1, "create users", "CREATE TABLE users (id INTEGER PRIMARY KEY);"))
	require.NoError(t, r.Add(2, "create posts", "CREATE TABLE posts (id INTEGER PRIMARY KEY);"))
	assert.Equal(t, 2, r.Latest())

	assert.Equal(t, 1, r.migrations[0].Version)
	assert.Equal(t, "create users", r.migrations[0].Description)
	assert.Equal(t, 2, r.migrations[1].Version)
}

func TestRegistryAddInvalid(t *testing.T) {
	r := NewRegistry()

	err := r.Add(2, "skip", "SELECT 1;")
	assert.ErrorContains(t, err, "expected version 1")

	require.NoError(t, r.Add(1, "first", "SELECT 1;"))

	err = r.Add(3, "skip again", "SELECT 1;")
	assert.ErrorContains(t, err, "expected version 2")

	assert.Panics(t, func() { NewRegistry().MustAdd(5, "bad", "SELECT 1;") })
}

func TestGetSetVersion(t *testing.T) {
	db, _ := openFile(t)

	v, err := GetVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, SetVersion(db, 42))
	v, err = GetVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestBackup(t *testing.T) {
	db, dbPath := openFile(t)
	_, err := db.Exec("PRAGMA journal_mode=WAL; CREATE TABLE t (id INTEGER); INSERT INTO t VALUES (1);")
	require.NoError(t, err)

	backupPath, err := Backup(db, dbPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(backupPath, dbPath+".bak."), backupPath)

	// The checkpoint puts the row in the main file, so the copy stands alone.
	bak, err := sql.Open("sqlite3", backupPath)
	require.NoError(t, err)
	defer bak.Close()
	var n int
	require.NoError(t, bak.QueryRow("SELECT COUNT(*) FROM t").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMigrateFresh(t *testing.T) {
	db, dbPath := openFile(t)

	r := NewRegistry().
		MustAdd(1, "create users", "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);").
		MustAdd(2, "create posts", "CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER);")

	result, err := r.Migrate(db, dbPath)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FromVersion)
	assert.Equal(t, 2, result.ToVersion)
	assert.Equal(t, 2, result.Applied)
	assert.Empty(t, result.BackupPath, "a version 0 database is not backed up")
	assert.Equal(t, 0, countBackups(t, filepath.Dir(dbPath)))

	for _, table := range []string{"users", "posts"} {
		var name string
		require.NoError(t, db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name))
	}
	v, err := GetVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestMigrateUpgradeBacksUp(t *testing.T) {
	db, dbPath := openFile(t)

	v1 := NewRegistry().MustAdd(1, "create users", "CREATE TABLE users (id INTEGER PRIMARY KEY);")
	_, err := v1.Migrate(db, dbPath)
	require.NoError(t, err)

	v2 := NewRegistry().
		MustAdd(1, "create users", "CREATE TABLE users (id INTEGER PRIMARY KEY);").
		MustAdd(2, "add name", "ALTER TABLE users ADD COLUMN name TEXT NOT NULL DEFAULT '';")
	result, err := v2.Migrate(db, dbPath)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FromVersion)
	assert.Equal(t, 1, result.Applied)
	assert.FileExists(t, result.BackupPath)
}

func TestMigrateAlreadyCurrent(t *testing.T) {
	db, dbPath := openFile(t)

	r := NewRegistry().
		MustAdd(1, "create users", "CREATE TABLE users (id INTEGER PRIMARY KEY);").
		MustAdd(2, "create posts", "CREATE TABLE posts (id INTEGER PRIMARY KEY);")
	require.NoError(t, SetVersion(db, r.Latest()))

	result, err := r.Migrate(db, dbPath)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FromVersion)
	assert.Equal(t, 0, result.Applied)
	assert.Empty(t, result.BackupPath)
	assert.Equal(t, 0, countBackups(t, filepath.Dir(dbPath)))
}

func TestMigrateFailureRollsBackStep(t *testing.T) {
	db, dbPath := openFile(t)

	r := NewRegistry().
		MustAdd(1, "create users", "CREATE TABLE users (id INTEGER PRIMARY KEY);").
		MustAdd(2, "broken", "CREATE TABLE posts (id INTEGER PRIMARY KEY); INSERT INTO nowhere VALUES (1);")

	_, err := r.Migrate(db, dbPath)
	assert.ErrorContains(t, err, "migration v2 (broken)")

	v, err := GetVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "the first step stays applied")

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name='posts'").Scan(&n))
	assert.Equal(t, 0, n, "the failed step leaves no table behind")
}

func TestMigrateRefusesNewerSchema(t *testing.T) {
	db, dbPath := openFile(t)
	require.NoError(t, SetVersion(db, 7))

	r := NewRegistry().MustAdd(1, "create users", "CREATE TABLE users (id INTEGER PRIMARY KEY);")
	_, err := r.Migrate(db, dbPath)
	assert.ErrorContains(t, err, "newer than supported")
}
