// Package migrate applies the SQL files under migrations/ in lexical order,
// one transaction per file, and records each applied file in
// schema_migrations so reruns only apply what is new.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/ignite/phish-tracker/internal/pkg/logger"
)

const createTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	filename   TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Applied is one row of schema_migrations.
type Applied struct {
	Filename  string
	AppliedAt time.Time
}

// Migrator applies migrations read from fsys.
type Migrator struct {
	db   *sql.DB
	fsys fs.FS
}

func New(db *sql.DB, fsys fs.FS) *Migrator {
	return &Migrator{db: db, fsys: fsys}
}

// Applied lists migrations already recorded, oldest filename first.
func (m *Migrator) Applied(ctx context.Context) ([]Applied, error) {
	if _, err := m.db.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	rows, err := m.db.QueryContext(ctx, `SELECT filename, applied_at FROM schema_migrations ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	var out []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Filename, &a.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Up applies every pending migration and returns the filenames applied.
// It stops at the first failing file; earlier files stay committed.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(applied))
	for _, a := range applied {
		done[a.Filename] = true
	}

	files, err := m.files()
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, name := range files {
		if done[name] {
			continue
		}
		data, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return ran, fmt.Errorf("read %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if err := m.apply(ctx, name, string(data)); err != nil {
			return ran, err
		}
		logger.Info("migration applied", "file", name)
		ran = append(ran, name)
	}
	return ran, nil
}

func (m *Migrator) apply(ctx context.Context, name, content string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, content); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

func (m *Migrator) files() ([]string, error) {
	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
