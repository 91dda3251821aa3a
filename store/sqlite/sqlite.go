/*
Package sqlite provides a SQLite-backed audit log for the inquiry desk.

PURPOSE:
  Period stores are plain CSV files that get fully overwritten on every
  save, so they carry no history. The audit log records who imported,
  edited or deleted which period and what each reconciliation changed.

INTERFACES IMPLEMENTED:
  inquiry.AuditLog: Append, ListByPeriod

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on audit_log
  - No DELETE statements on audit_log

KEY TABLES:
  audit_log: One row per import / reconcile / delete / password change

INDEXES:
  - idx_audit_log_period: Per-period history (hot path for the admin view)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection so that
  ":memory:" databases are shared by every query.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  audit, err := sqlite.New("./audit.db")
  if err != nil {
      log.Fatal(err)
  }
  defer audit.Close()

SEE ALSO:
  - inquiry/store.go: AuditLog interface
  - desk/service.go: Writes entries after each operation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/inquiry-desk/inquiry"
)

// createdAtLayout is fixed width so that created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements inquiry.AuditLog using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite audit log at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL DEFAULT '',
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		changed INTEGER NOT NULL DEFAULT 0,
		unchanged INTEGER NOT NULL DEFAULT 0,
		unmatched INTEGER NOT NULL DEFAULT 0,
		detail TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_period
		ON audit_log(period_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// AUDIT LOG (inquiry.AuditLog interface)
// =============================================================================

// Append persists an entry. Missing ID and CreatedAt are filled in.
func (s *Store) Append(ctx context.Context, e inquiry.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO audit_log (id, period_id, actor, action, changed, unchanged,
			unmatched, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, string(e.PeriodID), e.Actor, string(e.Action),
		e.Changed, e.Unchanged, e.Unmatched,
		nullString(e.Detail), e.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListByPeriod returns the newest entries for a period first.
// limit <= 0 returns every entry.
func (s *Store) ListByPeriod(ctx context.Context, id inquiry.PeriodID, limit int) ([]inquiry.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, period_id, actor, action, changed, unchanged, unmatched,
			detail, created_at
		FROM audit_log
		WHERE period_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{string(id)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []inquiry.AuditEntry
	for rows.Next() {
		var (
			e                 inquiry.AuditEntry
			periodID, action  string
			detail, createdAt sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &periodID, &e.Actor, &action,
			&e.Changed, &e.Unchanged, &e.Unmatched,
			&detail, &createdAt,
		); err != nil {
			return nil, err
		}
		e.PeriodID = inquiry.PeriodID(periodID)
		e.Action = inquiry.AuditAction(action)
		e.Detail = detail.String
		if createdAt.Valid {
			e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
