package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iksnae/wa-history/internal"
)

// SQLStore keeps one row per conversation with the messages as a JSON document.
// It serves both sqlite (modernc) and postgres (lib/pq).
type SQLStore struct {
	db      *sql.DB
	driver  string
	table   string
	timeout time.Duration
}

// OpenSQLite opens or creates a sqlite database file. ":memory:" keeps the
// database in memory for the life of the store.
func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", internal.ErrInvalidInput)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer, and each :memory: connection is its own database
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, "sqlite", opts)
}

// OpenPostgres connects to postgres with a lib/pq DSN or URL
func OpenPostgres(ctx context.Context, dsn string, opts Options) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newSQLStore(ctx, db, "postgres", opts)
}

func newSQLStore(ctx context.Context, db *sql.DB, driver string, opts Options) (*SQLStore, error) {
	s := &SQLStore{
		db:      db,
		driver:  driver,
		table:   DefaultCollection,
		timeout: opts.timeout(),
	}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	create := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			wa_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			last_message TEXT NOT NULL,
			messages TEXT NOT NULL,
			updated_at BIGINT NOT NULL DEFAULT 0
		)`, quoteIdentifier(s.table))
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create %s table: %w", s.table, err)
	}

	// tables written before updated_at existed
	ok, err := s.hasColumn(ctx, "updated_at")
	if err != nil {
		return fmt.Errorf("failed to inspect %s table: %w", s.table, err)
	}
	if ok {
		return nil
	}
	internal.LogInfo("Adding updated_at column to %s", s.table)
	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN updated_at BIGINT NOT NULL DEFAULT 0", quoteIdentifier(s.table))
	if _, err := s.db.ExecContext(ctx, alter); err != nil {
		return fmt.Errorf("failed to migrate %s table: %w", s.table, err)
	}
	return nil
}

// hasColumn reports whether the store table has the named column
func (s *SQLStore) hasColumn(ctx context.Context, column string) (bool, error) {
	query := "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?"
	if s.driver == "postgres" {
		query = `SELECT COUNT(*) FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?`
	}
	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind(query), s.table, column).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// rebind rewrites ? placeholders as $n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FindByConversationID loads one conversation
func (s *SQLStore) FindByConversationID(ctx context.Context, waID string) (*internal.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := s.rebind(fmt.Sprintf("SELECT wa_id, name, last_message, messages FROM %s WHERE wa_id = ?", quoteIdentifier(s.table)))
	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, waID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, internal.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return conv, nil
}

// Upsert inserts or replaces a conversation
func (s *SQLStore) Upsert(ctx context.Context, conv *internal.Conversation) error {
	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := s.rebind(fmt.Sprintf(`
		INSERT INTO %s (wa_id, name, last_message, messages, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (wa_id)
		DO UPDATE SET name = EXCLUDED.name, last_message = EXCLUDED.last_message,
			messages = EXCLUDED.messages, updated_at = EXCLUDED.updated_at`, quoteIdentifier(s.table)))
	if _, err := s.db.ExecContext(ctx, query, conv.WaID, conv.Name, conv.LastMessage, string(messages), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

// ListAll returns every conversation ordered by wa_id
func (s *SQLStore) ListAll(ctx context.Context) ([]*internal.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := fmt.Sprintf("SELECT wa_id, name, last_message, messages FROM %s ORDER BY wa_id", quoteIdentifier(s.table))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	convs := make([]*internal.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return convs, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*internal.Conversation, error) {
	var conv internal.Conversation
	var messages string
	if err := row.Scan(&conv.WaID, &conv.Name, &conv.LastMessage, &messages); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
		return nil, &internal.ParseError{Source: "conversations", Key: conv.WaID, Err: err}
	}
	if conv.Messages == nil {
		conv.Messages = []internal.StoredMessage{}
	}
	return &conv, nil
}

func quoteIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "\"\""
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
