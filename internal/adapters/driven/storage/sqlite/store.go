package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/custodia-labs/docagent/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/logger"
)

var _ driven.MutationJournal = (*Store)(nil)

const (
	dbFile = "journal.db"
	dsnOpt = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
)

// Store is the SQLite mutation journal.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens <dataDir>/journal.db, creating the directory and schema
// as needed. An empty dataDir means ~/.docagent.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docagent")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite", path+dsnOpt)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// migration is one NNN_name.up.sql file.
type migration struct {
	version int
	name    string
}

// migrate applies every up migration newer than the recorded version. Each
// runs in its own transaction together with its schema_migrations row.
func migrate(db *sql.DB, fsys fs.FS) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	pending, err := pendingMigrations(fsys, current)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := apply(db, fsys, m); err != nil {
			return err
		}
		logger.Debug("journal: applied migration %s", m.name)
	}
	return nil
}

func pendingMigrations(fsys fs.FS, after int) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	var out []migration
	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version > after {
			out = append(out, migration{version: version, name: name})
		}
	}
	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	return out, nil
}

func apply(db *sql.DB, fsys fs.FS, m migration) (err error) {
	script, err := fs.ReadFile(fsys, m.name)
	if err != nil {
		return fmt.Errorf("reading migration %s: %w", m.name, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %s: %w", m.name, err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err = tx.Exec(strings.TrimSpace(string(script))); err != nil {
		return fmt.Errorf("executing migration %s: %w", m.name, err)
	}
	if _, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
		return fmt.Errorf("recording migration %s: %w", m.name, err)
	}
	return tx.Commit()
}

// Append records a committed mutation. A zero CommittedAt is stamped now.
func (s *Store) Append(ctx context.Context, entry domain.JournalEntry) error {
	at := entry.CommittedAt
	if at.IsZero() {
		at = time.Now()
	}

	const q = `INSERT INTO mutations
		(operation, subject, affected, vector_count, generation, committed_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		entry.Operation, entry.Subject, entry.Affected,
		entry.VectorCount, entry.Generation, at.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("appending %s to journal: %w", entry.Operation, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A limit of 0 or less
// returns them all.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	const q = `SELECT id, operation, subject, affected, vector_count, generation, committed_at
		FROM mutations ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var (
			e  domain.JournalEntry
			at string
		)
		if err := rows.Scan(&e.ID, &e.Operation, &e.Subject, &e.Affected,
			&e.VectorCount, &e.Generation, &at); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		if e.CommittedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", at, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
