package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"pdfsearch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	content_hash TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	provider     TEXT NOT NULL,
	pages        INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS turns (
	id           TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	role         TEXT NOT NULL,
	text         TEXT NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_hash ON turns(content_hash);
`

// Store persists documents and chat turns in a local SQLite file. History
// is advisory: it is never transactionally coupled with the vector index.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the chat database at the given path, creating
// parent directories as needed.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating chat data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening chat database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chat schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// SaveDocument records an ingested document, replacing any previous row for
// the same content hash.
func (s *Store) SaveDocument(ctx context.Context, info domain.DocumentInfo) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (content_hash, display_name, provider, pages, created_at) VALUES (?, ?, ?, ?, ?)`,
		info.ContentHash, info.DisplayName, info.Provider, info.Pages, now())
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Document returns the stored metadata for a content hash.
func (s *Store) Document(ctx context.Context, contentHash string) (*domain.DocumentInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT content_hash, display_name, provider, pages FROM documents WHERE content_hash = ?`, contentHash)
	var info domain.DocumentInfo
	if err := row.Scan(&info.ContentHash, &info.DisplayName, &info.Provider, &info.Pages); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", contentHash, domain.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("loading document: %w", err)
	}
	return &info, nil
}

// SaveTurn appends one chat turn to a document's history.
func (s *Store) SaveTurn(ctx context.Context, contentHash, role, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, content_hash, role, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), contentHash, role, text, now())
	if err != nil {
		return fmt.Errorf("saving turn: %w", err)
	}
	return nil
}

// Turns returns a document's chat history in insertion order.
func (s *Store) Turns(ctx context.Context, contentHash string) ([]domain.ChatTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_hash, role, text, created_at FROM turns WHERE content_hash = ? ORDER BY rowid`, contentHash)
	if err != nil {
		return nil, fmt.Errorf("loading turns: %w", err)
	}
	defer rows.Close()
	var turns []domain.ChatTurn
	for rows.Next() {
		var t domain.ChatTurn
		var created string
		if err := rows.Scan(&t.ID, &t.ContentHash, &t.Role, &t.Text, &created); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// ListDocuments returns all ingested documents in insertion order.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_hash, display_name, provider, pages FROM documents ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()
	var docs []domain.DocumentInfo
	for rows.Next() {
		var info domain.DocumentInfo
		if err := rows.Scan(&info.ContentHash, &info.DisplayName, &info.Provider, &info.Pages); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, info)
	}
	return docs, rows.Err()
}

// Remove deletes a document and its entire chat history.
func (s *Store) Remove(ctx context.Context, contentHash string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE content_hash = ?`, contentHash)
	if err != nil {
		return fmt.Errorf("removing document: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE content_hash = ?`, contentHash); err != nil {
		return fmt.Errorf("removing turns: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("document %s: %w", contentHash, domain.ErrDocumentNotFound)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
