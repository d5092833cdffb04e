package state

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps every store in one table keyed by store name.
type SQLiteBackend struct {
	conn *sql.DB
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS lines (
		store TEXT NOT NULL,
		seq   INTEGER NOT NULL,
		line  TEXT NOT NULL,
		PRIMARY KEY (store, seq)
	);`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &SQLiteBackend{conn: conn}, nil
}

func (b *SQLiteBackend) Store(name string) Store {
	return &sqliteStore{conn: b.conn, name: name}
}

func (b *SQLiteBackend) Close() error {
	return b.conn.Close()
}

type sqliteStore struct {
	conn *sql.DB
	name string
}

func (s *sqliteStore) Load(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT line FROM lines WHERE store = ? ORDER BY seq`, s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.name, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", s.name, err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *sqliteStore) Append(ctx context.Context, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var last int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) FROM lines WHERE store = ?`, s.name).Scan(&last)
		if err != nil {
			return err
		}
		return insertLines(ctx, tx, s.name, last, lines)
	})
}

func (s *sqliteStore) Save(ctx context.Context, lines []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lines WHERE store = ?`, s.name); err != nil {
			return err
		}
		return insertLines(ctx, tx, s.name, 0, lines)
	})
}

func (s *sqliteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to write %s: %w", s.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", s.name, err)
	}
	return nil
}

func insertLines(ctx context.Context, tx *sql.Tx, store string, after int64, lines []string) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lines (store, seq, line) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, line := range lines {
		if _, err := stmt.ExecContext(ctx, store, after+int64(i)+1, line); err != nil {
			return err
		}
	}
	return nil
}
