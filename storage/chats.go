package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatcore/model"
)

// CreateChat inserts a new chat with a fresh opaque id.
func (s *Store) CreateChat(ctx context.Context, title string) (model.Chat, error) {
	now := s.timestamp()
	chat := model.Chat{
		ID:           uuid.NewString(),
		Title:        title,
		CreatedAt:    fromTimestamp(now),
		LastAccessed: fromTimestamp(now),
	}

	err := s.write(ctx, "create chat", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat (id, title, created_at, last_accessed) VALUES (?, ?, ?, ?)`,
			chat.ID, chat.Title, now, now)
		return err
	})
	if err != nil {
		return model.Chat{}, err
	}

	s.logger.Debug("chat created", zap.String("chat_id", chat.ID))
	s.events.Publish(ChatEvent{Kind: ChatCreated, ChatID: chat.ID, Title: chat.Title})
	return chat, nil
}

// GetChat loads one chat header.
func (s *Store) GetChat(ctx context.Context, id string) (model.Chat, error) {
	var (
		chat                model.Chat
		created, lastAccess int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, last_accessed FROM chat WHERE id = ?`, id,
	).Scan(&chat.ID, &chat.Title, &created, &lastAccess)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Chat{}, &model.StoreError{Op: "get chat", Err: model.ErrChatNotFound}
	}
	if err != nil {
		return model.Chat{}, &model.StoreError{Op: "get chat", Err: err}
	}
	chat.CreatedAt = fromTimestamp(created)
	chat.LastAccessed = fromTimestamp(lastAccess)
	return chat, nil
}

// ListChats returns every chat, most recently accessed first.
func (s *Store) ListChats(ctx context.Context) ([]model.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, last_accessed FROM chat ORDER BY last_accessed DESC, rowid DESC`)
	if err != nil {
		return nil, &model.StoreError{Op: "list chats", Err: err}
	}
	defer rows.Close()

	var chats []model.Chat
	for rows.Next() {
		var (
			chat                model.Chat
			created, lastAccess int64
		)
		if err := rows.Scan(&chat.ID, &chat.Title, &created, &lastAccess); err != nil {
			return nil, &model.StoreError{Op: "list chats", Err: err}
		}
		chat.CreatedAt = fromTimestamp(created)
		chat.LastAccessed = fromTimestamp(lastAccess)
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StoreError{Op: "list chats", Err: err}
	}
	return chats, nil
}

// ChatExists reports whether a chat with id is stored.
func (s *Store) ChatExists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat WHERE id = ?`, id).Scan(&n); err != nil {
		return false, &model.StoreError{Op: "chat exists", Err: err}
	}
	return n > 0, nil
}

// UpdateChatTitle renames a chat.
func (s *Store) UpdateChatTitle(ctx context.Context, id, title string) error {
	err := s.write(ctx, "update chat title", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE chat SET title = ? WHERE id = ?`, title, id)
		if err != nil {
			return err
		}
		return requireRow(res, model.ErrChatNotFound)
	})
	if err != nil {
		return err
	}
	s.events.Publish(ChatEvent{Kind: ChatRenamed, ChatID: id, Title: title})
	return nil
}

// TouchChat bumps the last access time of a chat.
func (s *Store) TouchChat(ctx context.Context, id string) error {
	return s.write(ctx, "touch chat", func(tx *sql.Tx) error {
		return s.touch(ctx, tx, id)
	})
}

// DeleteChat removes a chat and all of its messages.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	err := s.write(ctx, "delete chat", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM message WHERE chat_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM chat WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res, model.ErrChatNotFound)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("chat deleted", zap.String("chat_id", id))
	s.events.Publish(ChatEvent{Kind: ChatDeleted, ChatID: id})
	return nil
}

func (s *Store) touch(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `UPDATE chat SET last_accessed = ? WHERE id = ?`, s.timestamp(), id)
	if err != nil {
		return err
	}
	return requireRow(res, model.ErrChatNotFound)
}

// requireRow returns notFound when the statement affected no rows.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
