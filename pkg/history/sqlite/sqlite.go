// Package sqlite provides a SQLite-backed history driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/agentchat/pkg/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id           TEXT PRIMARY KEY,
	workspace    TEXT NOT NULL,
	chat_id      TEXT NOT NULL,
	prompt       TEXT NOT NULL,
	reply        TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	chunks       INTEGER NOT NULL DEFAULT 0,
	started_at   INTEGER NOT NULL,
	completed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_chat ON exchanges (workspace, chat_id, started_at);
`

const columns = `id, workspace, chat_id, prompt, reply, status, error, chunks, started_at, completed_at`

// Driver implements history.Driver using SQLite.
type Driver struct {
	db *sql.DB
}

var _ history.Driver = (*Driver)(nil)

// NewDriver opens (creating if needed) the database at dbPath.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases from splitting per
	// connection and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

// Put stores an exchange, replacing any existing row with the same ID.
func (d *Driver) Put(ctx context.Context, ex *history.Exchange) error {
	if ex == nil {
		return errors.New("cannot store nil exchange")
	}
	if ex.ID == "" {
		return errors.New("exchange ID is required")
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO exchanges (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID,
		ex.Workspace,
		ex.ChatID,
		ex.Prompt,
		ex.Reply,
		string(ex.Status),
		ex.Error,
		ex.Chunks,
		toUnix(ex.StartedAt),
		toUnix(ex.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("storing exchange %s: %w", ex.ID, err)
	}
	return nil
}

// Get retrieves an exchange by ID.
func (d *Driver) Get(ctx context.Context, id string) (*history.Exchange, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+columns+` FROM exchanges WHERE id = ?`, id)

	ex, err := scanExchange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading exchange %s: %w", id, err)
	}
	return ex, nil
}

// List returns matching exchanges, oldest first. With a limit the most
// recent exchanges are kept.
func (d *Driver) List(ctx context.Context, f history.Filter) ([]*history.Exchange, error) {
	limit := -1
	if f.Limit > 0 {
		limit = f.Limit
	}

	rows, err := d.db.QueryContext(ctx, `
SELECT `+columns+` FROM (
	SELECT `+columns+` FROM exchanges
	WHERE (? = '' OR workspace = ?) AND (? = '' OR chat_id = ?)
	ORDER BY started_at DESC, id DESC
	LIMIT ?
) ORDER BY started_at ASC, id ASC`,
		f.Workspace, f.Workspace, f.ChatID, f.ChatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	defer rows.Close()

	var out []*history.Exchange
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		out = append(out, ex)
	}

	return out, rows.Err()
}

// Chats summarizes the chats recorded for workspace, most recent first.
func (d *Driver) Chats(ctx context.Context, workspace string) ([]history.ChatSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
SELECT chat_id, COUNT(*), MAX(started_at) FROM exchanges
WHERE workspace = ?
GROUP BY chat_id
ORDER BY MAX(started_at) DESC`, workspace)
	if err != nil {
		return nil, fmt.Errorf("summarizing chats: %w", err)
	}
	defer rows.Close()

	var out []history.ChatSummary
	for rows.Next() {
		var (
			s    = history.ChatSummary{Workspace: workspace}
			last int64
		)
		if err := rows.Scan(&s.ChatID, &s.Exchanges, &last); err != nil {
			return nil, fmt.Errorf("scanning chat summary: %w", err)
		}
		s.LastAt = fromUnix(last)
		out = append(out, s)
	}

	return out, rows.Err()
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExchange(s scanner) (*history.Exchange, error) {
	var (
		ex               history.Exchange
		status           string
		started, settled int64
	)

	err := s.Scan(
		&ex.ID,
		&ex.Workspace,
		&ex.ChatID,
		&ex.Prompt,
		&ex.Reply,
		&status,
		&ex.Error,
		&ex.Chunks,
		&started,
		&settled,
	)
	if err != nil {
		return nil, err
	}

	ex.Status = history.Status(status)
	ex.StartedAt = fromUnix(started)
	ex.CompletedAt = fromUnix(settled)
	return &ex, nil
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
