// Package storage persists chats and their messages in SQLite.
//
// A Store is safe for concurrent use. Writes are serialized by the store
// itself; reads run concurrently. Every failure is returned as a
// *model.StoreError wrapping the cause, so model.ErrChatNotFound and
// model.ErrMessageNotFound can be matched with errors.Is.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"chatcore/events"
	"chatcore/model"
)

// ChatEventKind identifies a chat lifecycle change.
type ChatEventKind int

const (
	ChatCreated ChatEventKind = iota
	ChatDeleted
	ChatRenamed
)

func (k ChatEventKind) String() string {
	switch k {
	case ChatCreated:
		return "created"
	case ChatDeleted:
		return "deleted"
	case ChatRenamed:
		return "renamed"
	}
	return fmt.Sprintf("ChatEventKind(%d)", int(k))
}

// ChatEvent is published on Store.Events after the change is committed.
type ChatEvent struct {
	Kind   ChatEventKind
	ChatID string
	Title  string
}

// Store is the conversation store.
type Store struct {
	db     *sql.DB
	wmu    sync.Mutex
	events *events.Bus[ChatEvent]
	logger *zap.Logger
	now    func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS chat (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	last_accessed INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_last_accessed ON chat(last_accessed);

CREATE TABLE IF NOT EXISTS message (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id TEXT NOT NULL REFERENCES chat(id),
	role TEXT NOT NULL,
	content TEXT,
	tool_calls TEXT,
	name TEXT,
	tool_call_id TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_message_chat ON message(chat_id, id);
`

// Open opens (creating if needed) the database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &model.StoreError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &model.StoreError{Op: "open", Err: err}
	}

	s := &Store{
		db:     db,
		events: events.New[ChatEvent](),
		logger: logger,
		now:    time.Now,
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, &model.StoreError{Op: "initialize", Err: err}
	}

	logger.Debug("conversation store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	if err := s.migrateSchema(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

// migrateSchema adds the tool columns to databases created before tool
// calling was supported.
func (s *Store) migrateSchema() error {
	for _, column := range []string{"tool_calls", "name", "tool_call_id"} {
		exists, err := s.columnExists("message", column)
		if err != nil {
			return fmt.Errorf("failed to check for %s column: %w", column, err)
		}
		if exists {
			continue
		}
		if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE message ADD COLUMN %s TEXT", column)); err != nil {
			return fmt.Errorf("failed to add %s column: %w", column, err)
		}
		s.logger.Info("migrated message table", zap.String("column", column))
	}
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info
func (s *Store) columnExists(tableName, columnName string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid          int
			name         string
			dataType     string
			notNull      int
			defaultValue any
			pk           int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Events returns the chat lifecycle bus.
func (s *Store) Events() *events.Bus[ChatEvent] {
	return s.events
}

// Close optimizes and closes the database.
func (s *Store) Close() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	_, optErr := s.db.Exec("PRAGMA optimize")
	if err := multierr.Append(optErr, s.db.Close()); err != nil {
		return &model.StoreError{Op: "close", Err: err}
	}
	return nil
}

// write runs fn in a transaction while holding the write lock.
func (s *Store) write(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &model.StoreError{Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return storeError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return &model.StoreError{Op: op, Err: err}
	}
	return nil
}

func storeError(op string, err error) error {
	var se *model.StoreError
	if errors.As(err, &se) {
		return err
	}
	return &model.StoreError{Op: op, Err: err}
}

func (s *Store) timestamp() int64 {
	return s.now().UTC().UnixNano()
}

func fromTimestamp(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
