// Package journal keeps the history of resolved dictation sessions in SQLite.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"earworm/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		startedAt INTEGER NOT NULL,
		resolvedAt INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		rawText TEXT NOT NULL,
		finalText TEXT NOT NULL,
		actions TEXT NOT NULL DEFAULT '[]',
		detail TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS sessions_resolved ON sessions(resolvedAt DESC);
`

// Store implements ports.Journal.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal database at path with WAL enabled.
// ":memory:" opens a private in-memory journal.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, entry domain.JournalEntry) error {
	actions, err := json.Marshal(nonNil(entry.Actions))
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (id, startedAt, resolvedAt, outcome, rawText, finalText, actions, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.SessionID, entry.StartedAt.UnixMilli(), entry.ResolvedAt.UnixMilli(),
		string(entry.Outcome), entry.RawText, entry.FinalText, string(actions), entry.Detail)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", entry.SessionID, err)
	}
	return nil
}

// List returns up to limit sessions, most recently resolved first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, startedAt, resolvedAt, outcome, rawText, finalText, actions, detail
		FROM sessions
		ORDER BY resolvedAt DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		var startedAt, resolvedAt int64
		var outcome, actions string
		if err := rows.Scan(&e.SessionID, &startedAt, &resolvedAt, &outcome,
			&e.RawText, &e.FinalText, &actions, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		e.StartedAt = time.UnixMilli(startedAt)
		e.ResolvedAt = time.UnixMilli(resolvedAt)
		e.Outcome = domain.Outcome(outcome)
		if err := json.Unmarshal([]byte(actions), &e.Actions); err != nil {
			return nil, fmt.Errorf("decode actions for %s: %w", e.SessionID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes sessions resolved before cutoff and reports how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE resolvedAt < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}

func nonNil(actions []string) []string {
	if actions == nil {
		return []string{}
	}
	return actions
}
