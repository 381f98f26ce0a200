// Package migration versions SQLite schemas with PRAGMA user_version. Steps
// are registered in order and applied one transaction each, after a backup
// of any database that already holds data.
package migration

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"
)

// Migration is a single schema step.
type Migration struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
	SQL         string `json:"sql"`
}

// Result describes what happened during a Migrate call.
type Result struct {
	FromVersion int    `json:"from_version"`
	ToVersion   int    `json:"to_version"`
	Applied     int    `json:"applied"`
	BackupPath  string `json:"backup_path,omitempty"`
}

// Registry holds an ordered list of migrations.
type Registry struct {
	migrations []Migration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a migration. The version must be sequential (len(migrations)+1).
func (r *Registry) Add(version int, description, sql string) error {
	expected := len(r.migrations) + 1
	if version != expected {
		return fmt.Errorf("expected version %d, got %d", expected, version)
	}
	r.migrations = append(r.migrations, Migration{
		Version:     version,
		Description: description,
		SQL:         sql,
	})
	return nil
}

// MustAdd is Add for package-level registries built from constants.
func (r *Registry) MustAdd(version int, description, sql string) *Registry {
	if err := r.Add(version, description, sql); err != nil {
		panic(err)
	}
	return r
}

// Latest returns the highest registered migration version, or 0 if empty.
func (r *Registry) Latest() int {
	return len(r.migrations)
}

func GetVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func SetVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
	if err != nil {
		return fmt.Errorf("set user_version to %d: %w", version, err)
	}
	return nil
}

// Backup checkpoints the WAL into the main file and copies it to
// {dbPath}.bak.{unix_timestamp}, returning the backup path.
func Backup(db *sql.DB, dbPath string) (string, error) {
	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return "", fmt.Errorf("checkpoint before backup: %w", err)
	}
	backupPath := fmt.Sprintf("%s.bak.%d", dbPath, time.Now().Unix())

	src, err := os.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("open source db for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy db to backup: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return "", fmt.Errorf("sync backup file: %w", err)
	}
	return backupPath, nil
}

// Migrate applies all pending migrations to the database.
//
//  1. Read the current version via PRAGMA user_version.
//  2. If already at the latest version, return immediately.
//  3. Back up the file unless it is at version 0 and so holds no data yet.
//  4. Run each pending step and its user_version bump in one transaction.
//
// A database newer than the registry is refused.
func (r *Registry) Migrate(db *sql.DB, dbPath string) (*Result, error) {
	current, err := GetVersion(db)
	if err != nil {
		return nil, err
	}
	if current > r.Latest() {
		return nil, fmt.Errorf("schema version %d is newer than supported %d", current, r.Latest())
	}
	if current == r.Latest() {
		return &Result{FromVersion: current, ToVersion: current}, nil
	}

	res := &Result{FromVersion: current, ToVersion: r.Latest()}
	if current > 0 && dbPath != "" {
		res.BackupPath, err = Backup(db, dbPath)
		if err != nil {
			return nil, fmt.Errorf("pre-migration backup: %w", err)
		}
	}

	for _, m := range r.migrations {
		if m.Version <= current {
			continue
		}
		if err := apply(db, m); err != nil {
			return nil, err
		}
		res.Applied++
	}
	return res, nil
}

func apply(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration v%d: begin: %w", m.Version, err)
	}
	if _, err := tx.Exec(m.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration v%d (%s): %w", m.Version, m.Description, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		tx.Rollback()
		return fmt.Errorf("set version after migration v%d: %w", m.Version, err)
	}
	return tx.Commit()
}
