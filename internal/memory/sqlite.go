// ABOUTME: SQLite implementation of the memory Store using modernc.org/sqlite
// ABOUTME: Keyword-overlap scored LIKE search with automatic schema creation

package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (or creates) a memory database at the given path.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "memory")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL for better concurrent read behavior
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("memory store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add stores a memory text for the user.
func (s *SQLiteStore) Add(ctx context.Context, text, userID string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("memory text is empty")
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, text, created_at) VALUES (?, ?, ?, ?)`,
		id, userID, text, s.now().UTC())
	if err != nil {
		return fmt.Errorf("inserting memory: %w", err)
	}

	s.logger.Debug("memory added", "memory_id", id, "user_id", userID)
	return nil
}

// Search returns up to limit records ranked by how many query keywords they
// contain, ties broken newest first. A query with no usable keywords returns
// the newest records.
func (s *SQLiteStore) Search(ctx context.Context, query, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 5
	}

	keywords := searchTerms(query)
	if len(keywords) == 0 {
		return s.recent(ctx, userID, limit)
	}

	clauses := make([]string, 0, len(keywords))
	args := []any{userID}
	for _, kw := range keywords {
		clauses = append(clauses, "text LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(kw)+"%")
	}

	q := fmt.Sprintf(
		`SELECT id, user_id, text, created_at FROM memories WHERE user_id = ? AND (%s)`,
		strings.Join(clauses, " OR "))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	// Rank by keyword overlap in Go; LIKE only prefilters candidates.
	score := func(r Record) int {
		n := 0
		lower := strings.ToLower(r.Text)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				n++
			}
		}
		return n
	}
	sort.SliceStable(records, func(i, j int) bool {
		si, sj := score(records[i]), score(records[j])
		if si != sj {
			return si > sj
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// GetAll returns every record for the user, oldest first.
func (s *SQLiteStore) GetAll(ctx context.Context, userID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, text, created_at FROM memories WHERE user_id = ? ORDER BY created_at ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Count returns the number of records stored for the user.
func (s *SQLiteStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting memories: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, text, created_at FROM memories WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent memories: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.Text, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning memory row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// searchTerms splits a query into keywords, dropping single-rune fragments
// that would match almost everything.
func searchTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(query) {
		if len([]rune(f)) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
