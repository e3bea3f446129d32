// Package store persists named session snapshots (working directory,
// environment variables, and a flattened VFS tree) to a SQLite database so
// a shell session can be saved and later restored.
package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/moodang/internal/shellenv"
	"github.com/nextlevelbuilder/moodang/internal/vfs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite connection holding the snapshots table.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the SQLite database at path and applies pending
// migrations, using modernc.org/sqlite's CGO-free driver.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: loading migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("store: building migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: applying migrations: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Snapshot is a saved session: env state plus a flattened VFS tree.
type Snapshot struct {
	Name             string
	WorkingDirectory string
	Env              map[string]string
	VFSEntries       []vfs.DumpEntry
	CreatedAt        time.Time
}

// Save upserts a named snapshot of env's state and fs's tree.
func (s *Store) Save(name string, env *shellenv.Environment, fs *vfs.FS) error {
	snap := env.Snapshot()
	envJSON, err := json.Marshal(snap.Env)
	if err != nil {
		return fmt.Errorf("store: encoding env: %w", err)
	}
	vfsJSON, err := json.Marshal(fs.Dump())
	if err != nil {
		return fmt.Errorf("store: encoding vfs: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO snapshots (name, working_directory, env_json, vfs_json, created_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET
		   working_directory = excluded.working_directory,
		   env_json = excluded.env_json,
		   vfs_json = excluded.vfs_json,
		   created_at = CURRENT_TIMESTAMP`,
		name, snap.WorkingDirectory, string(envJSON), string(vfsJSON),
	)
	if err != nil {
		return fmt.Errorf("store: saving snapshot %s: %w", name, err)
	}
	return nil
}

// Load reads a named snapshot back out.
func (s *Store) Load(name string) (Snapshot, error) {
	var (
		workingDir, envJSON, vfsJSON string
		createdAt                    time.Time
	)
	row := s.db.QueryRow(`SELECT working_directory, env_json, vfs_json, created_at FROM snapshots WHERE name = ?`, name)
	if err := row.Scan(&workingDir, &envJSON, &vfsJSON, &createdAt); err != nil {
		return Snapshot{}, fmt.Errorf("store: loading snapshot %s: %w", name, err)
	}

	var env map[string]string
	if err := json.Unmarshal([]byte(envJSON), &env); err != nil {
		return Snapshot{}, fmt.Errorf("store: decoding env for %s: %w", name, err)
	}
	var entries []vfs.DumpEntry
	if err := json.Unmarshal([]byte(vfsJSON), &entries); err != nil {
		return Snapshot{}, fmt.Errorf("store: decoding vfs for %s: %w", name, err)
	}

	return Snapshot{
		Name:             name,
		WorkingDirectory: workingDir,
		Env:              env,
		VFSEntries:       entries,
		CreatedAt:        createdAt,
	}, nil
}

// List returns every saved snapshot name, most recently saved first.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM snapshots ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: listing snapshots: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes a named snapshot, reporting whether one existed.
func (s *Store) Delete(name string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("store: deleting snapshot %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
