// Package ledger keeps the reviewed ledger: guest questions no template could
// answer, stored once per normalized question for later triage.
package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"guestmail/internal/textmatch"
)

type Status string

const (
	StatusNew      Status = "new"
	StatusReviewed Status = "reviewed"
	StatusPromoted Status = "promoted"
)

// ErrUnknownEntry is returned when a hash has no ledger row.
var ErrUnknownEntry = errors.New("ledger entry not found")

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusNew:
		return StatusNew, nil
	case StatusReviewed:
		return StatusReviewed, nil
	case StatusPromoted:
		return StatusPromoted, nil
	}
	return "", fmt.Errorf("unknown ledger status %q", s)
}

// Entry is a question offered for capture.
type Entry struct {
	Question string `json:"question"`
	Category string `json:"category,omitempty"`
	Subject  string `json:"subject,omitempty"`
	DraftID  string `json:"draft_id,omitempty"`
}

// Record is a stored ledger row.
type Record struct {
	Hash      string    `json:"hash"`
	Question  string    `json:"question"`
	Category  string    `json:"category"`
	Subject   string    `json:"subject"`
	DraftID   string    `json:"draft_id"`
	Status    Status    `json:"status"`
	SeenCount int       `json:"seen_count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

type CaptureResult struct {
	Captured   int      `json:"captured"`
	Duplicates int      `json:"duplicates"`
	Hashes     []string `json:"hashes"`
}

// Hash is the content key of a question: sha256 over the folded text with
// whitespace and trailing punctuation normalized.
func Hash(question string) string {
	n := strings.Join(strings.Fields(textmatch.Fold(question)), " ")
	n = strings.TrimRight(n, "?!. ")
	sum := sha256.Sum256([]byte(n))
	return hex.EncodeToString(sum[:])
}

// Store manages the ledger in SQLite.
type Store struct {
	DBPath string
	db     *sql.DB
	now    func() time.Time
}

// Open opens or creates the ledger database.
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve ledger db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{
		DBPath: absPath,
		db:     db,
		now:    time.Now,
	}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			hash TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			draft_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'new',
			seen_count INTEGER NOT NULL DEFAULT 1,
			first_seen DATETIME NOT NULL,
			last_seen DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_status ON ledger_entries(status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

// Capture stores each question once. Questions already in the ledger, or
// repeated within entries, count as duplicates and only bump seen_count.
func (s *Store) Capture(ctx context.Context, entries []Entry) (CaptureResult, error) {
	res := CaptureResult{Hashes: []string{}}
	if len(entries) == 0 {
		return res, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin capture: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := s.now().UTC()
	for _, e := range entries {
		question := strings.TrimSpace(e.Question)
		if question == "" {
			continue
		}
		hash := Hash(question)
		out, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO ledger_entries
				(hash, question, category, subject, draft_id, status, seen_count, first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			hash, question, e.Category, e.Subject, e.DraftID, string(StatusNew), now, now,
		)
		if err != nil {
			return CaptureResult{}, fmt.Errorf("insert ledger entry: %w", err)
		}
		n, err := out.RowsAffected()
		if err != nil {
			return CaptureResult{}, fmt.Errorf("insert ledger entry: %w", err)
		}
		if n == 0 {
			if _, err := tx.ExecContext(ctx,
				"UPDATE ledger_entries SET seen_count = seen_count + 1, last_seen = ? WHERE hash = ?",
				now, hash,
			); err != nil {
				return CaptureResult{}, fmt.Errorf("update ledger entry: %w", err)
			}
			res.Duplicates++
		} else {
			res.Captured++
		}
		res.Hashes = append(res.Hashes, hash)
	}
	if err := tx.Commit(); err != nil {
		return CaptureResult{}, fmt.Errorf("commit capture: %w", err)
	}
	return res, nil
}

// List returns ledger rows, oldest first. An empty status lists everything.
func (s *Store) List(ctx context.Context, status Status) ([]Record, error) {
	query := `SELECT hash, question, category, subject, draft_id, status, seen_count, first_seen, last_seen
		FROM ledger_entries`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY first_seen ASC, hash ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r      Record
			status string
		)
		if err := rows.Scan(&r.Hash, &r.Question, &r.Category, &r.Subject, &r.DraftID, &status, &r.SeenCount, &r.FirstSeen, &r.LastSeen); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		r.Status = Status(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return out, nil
}

// SetStatus moves an entry through review. hash may be a unique prefix of at
// least 8 characters.
func (s *Store) SetStatus(ctx context.Context, hash string, status Status) (string, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return "", err
	}
	hash = strings.ToLower(strings.TrimSpace(hash))
	if len(hash) < 8 {
		return "", fmt.Errorf("ledger hash %q is too short", hash)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT hash FROM ledger_entries WHERE hash LIKE ? LIMIT 2", hash+"%")
	if err != nil {
		return "", fmt.Errorf("lookup ledger entry: %w", err)
	}
	var matches []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			rows.Close()
			return "", fmt.Errorf("scan ledger hash: %w", err)
		}
		matches = append(matches, h)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return "", fmt.Errorf("iterate ledger hashes: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrUnknownEntry, hash)
	case 1:
	default:
		return "", fmt.Errorf("ledger hash prefix %q is ambiguous", hash)
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE ledger_entries SET status = ? WHERE hash = ?", string(status), matches[0]); err != nil {
		return "", fmt.Errorf("update ledger status: %w", err)
	}
	return matches[0], nil
}
