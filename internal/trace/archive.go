// Package trace provides SQLite-backed archival of recorded interactions.
//
// The archive is strictly observational: the live protocol engine appends to
// it best-effort and never reads it back. Its purpose is post-mortem
// inspection - after a failed run, `sleight trace` renders the session's
// interaction timeline from the database.
//
// All ordering uses the seq column (logical clock), never timestamps, so
// reads are deterministic: ORDER BY seq ASC, id ASC.
package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Interaction is one archived call record.
type Interaction struct {
	ID       string
	Session  string
	MockID   string
	MockName string
	Seq      int64
	Method   string
	Args     string
	CallHash string
	Stubbed  bool
	Verified bool
	Ignored  bool
}

// Archive is the durable interaction store.
// Uses SQLite with WAL mode for concurrent read access.
type Archive struct {
	db *sql.DB
}

// Open creates or opens a SQLite archive at the given path.
// Applies required pragmas and the schema automatically; idempotent.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect archive: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Record inserts an interaction. Idempotent via ON CONFLICT(id) DO NOTHING:
// replaying the same content-addressed record is silently ignored.
func (a *Archive) Record(ctx context.Context, rec Interaction) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO interactions
		(id, session_token, mock_id, mock_name, seq, method, args, call_hash, stubbed, verified, ignored)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Session,
		rec.MockID,
		rec.MockName,
		rec.Seq,
		rec.Method,
		rec.Args,
		rec.CallHash,
		boolInt(rec.Stubbed),
		boolInt(rec.Verified),
		boolInt(rec.Ignored),
	)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// UpdateMarks refreshes an interaction's verification marks.
// Unknown IDs are silently ignored (the record may have been unarchivable).
func (a *Archive) UpdateMarks(ctx context.Context, id string, stubbed, verified, ignored bool) error {
	_, err := a.db.ExecContext(ctx, `
		UPDATE interactions
		SET stubbed = ?, verified = ?, ignored = ?
		WHERE id = ?
	`, boolInt(stubbed), boolInt(verified), boolInt(ignored), id)
	if err != nil {
		return fmt.Errorf("update marks: %w", err)
	}
	return nil
}

// ReadSession returns a session's interactions in deterministic order:
// ORDER BY seq ASC, id ASC.
func (a *Archive) ReadSession(ctx context.Context, session string) ([]Interaction, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, session_token, mock_id, mock_name, seq, method, args, call_hash, stubbed, verified, ignored
		FROM interactions
		WHERE session_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var rec Interaction
		var stubbed, verified, ignored int
		if err := rows.Scan(
			&rec.ID, &rec.Session, &rec.MockID, &rec.MockName, &rec.Seq,
			&rec.Method, &rec.Args, &rec.CallHash, &stubbed, &verified, &ignored,
		); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		rec.Stubbed = stubbed != 0
		rec.Verified = verified != 0
		rec.Ignored = ignored != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}

	if out == nil {
		out = []Interaction{}
	}
	return out, nil
}

// Sessions returns the distinct session tokens in the archive, newest seq
// first.
func (a *Archive) Sessions(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT session_token
		FROM interactions
		GROUP BY session_token
		ORDER BY MAX(seq) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// Stats summarizes one archived session.
type Stats struct {
	Interactions int
	Mocks        int
	Stubbed      int
	Verified     int
	Ignored      int
}

// SessionStats computes summary statistics for a session.
func (a *Archive) SessionStats(ctx context.Context, session string) (Stats, error) {
	var s Stats
	err := a.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT mock_id),
			COALESCE(SUM(stubbed), 0),
			COALESCE(SUM(verified), 0),
			COALESCE(SUM(ignored), 0)
		FROM interactions
		WHERE session_token = ?
	`, session).Scan(&s.Interactions, &s.Mocks, &s.Stubbed, &s.Verified, &s.Ignored)
	if err != nil {
		return Stats{}, fmt.Errorf("session stats: %w", err)
	}
	return s, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
