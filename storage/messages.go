package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"chatcore/model"
)

const messageColumns = `id, chat_id, role, content, tool_calls, name, tool_call_id, created_at`

// AppendMessage stores msg at the end of its chat and bumps the chat's
// last access time. The stored message, with ID and CreatedAt set, is
// returned.
func (s *Store) AppendMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	if !msg.Role.Valid() {
		return model.Message{}, &model.StoreError{Op: "append message", Err: fmt.Errorf("invalid role %q", msg.Role)}
	}
	if msg.Role == model.RoleTool && msg.ToolCallID == "" {
		return model.Message{}, &model.StoreError{Op: "append message", Err: errors.New("tool message without tool call id")}
	}
	toolCalls, err := model.EncodeToolCalls(msg.ToolCalls)
	if err != nil {
		return model.Message{}, &model.StoreError{Op: "append message", Err: err}
	}

	err = s.write(ctx, "append message", func(tx *sql.Tx) error {
		if err := s.touch(ctx, tx, msg.ChatID); err != nil {
			return err
		}
		now := s.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO message (chat_id, role, content, tool_calls, name, tool_call_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ChatID,
			string(msg.Role),
			nullString(msg.Content),
			nullString(toolCalls),
			nullString(msg.Name),
			nullString(msg.ToolCallID),
			now,
		)
		if err != nil {
			return err
		}
		if msg.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		msg.CreatedAt = fromTimestamp(now)
		return nil
	})
	if err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// GetMessages returns the history of a chat in creation order and bumps
// its last access time.
func (s *Store) GetMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	if err := s.TouchChat(ctx, chatID); err != nil {
		return nil, &model.StoreError{Op: "get messages", Err: errors.Unwrap(err)}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM message WHERE chat_id = ? ORDER BY id`, chatID)
	if err != nil {
		return nil, &model.StoreError{Op: "get messages", Err: err}
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, &model.StoreError{Op: "get messages", Err: err}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StoreError{Op: "get messages", Err: err}
	}
	return messages, nil
}

// GetMessage loads a single message by id.
func (s *Store) GetMessage(ctx context.Context, id int64) (model.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM message WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, &model.StoreError{Op: "get message", Err: model.ErrMessageNotFound}
	}
	if err != nil {
		return model.Message{}, &model.StoreError{Op: "get message", Err: err}
	}
	return msg, nil
}

// DeleteMessage removes a single message.
func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	return s.write(ctx, "delete message", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM message WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res, model.ErrMessageNotFound)
	})
}

// HasMessages reports whether the chat holds any user or assistant message.
func (s *Store) HasMessages(ctx context.Context, chatID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM message WHERE chat_id = ? AND role IN ('user', 'assistant')`, chatID,
	).Scan(&n)
	if err != nil {
		return false, &model.StoreError{Op: "has messages", Err: err}
	}
	return n > 0, nil
}

// MessageMatch is a search hit.
type MessageMatch struct {
	ChatID    string
	ChatTitle string
	Message   model.Message
	Preview   string
}

const previewLength = 100

// SearchMessages finds non-system messages containing query, ignoring
// ASCII case, across all chats. Newest matches come first; limit <= 0
// means no limit.
func (s *Store) SearchMessages(ctx context.Context, query string, limit int) ([]MessageMatch, error) {
	if strings.TrimSpace(query) == "" {
		return []MessageMatch{}, nil
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.chat_id, m.role, m.content, m.tool_calls, m.name, m.tool_call_id, m.created_at, c.title
		FROM message m JOIN chat c ON c.id = m.chat_id
		WHERE m.role != 'system' AND m.content LIKE ? ESCAPE '\'
		ORDER BY m.id DESC
		LIMIT ?`,
		"%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, &model.StoreError{Op: "search messages", Err: err}
	}
	defer rows.Close()

	matches := []MessageMatch{}
	for rows.Next() {
		var title string
		msg, err := scanMessage(rows, &title)
		if err != nil {
			return nil, &model.StoreError{Op: "search messages", Err: err}
		}
		matches = append(matches, MessageMatch{
			ChatID:    msg.ChatID,
			ChatTitle: title,
			Message:   msg,
			Preview:   preview(msg.Content),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StoreError{Op: "search messages", Err: err}
	}
	return matches, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner, extra ...any) (model.Message, error) {
	var (
		msg                                  model.Message
		role                                 string
		content, toolCalls, name, toolCallID sql.NullString
		created                              int64
	)
	dest := append([]any{&msg.ID, &msg.ChatID, &role, &content, &toolCalls, &name, &toolCallID, &created}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Message{}, err
	}

	calls, err := model.DecodeToolCalls(toolCalls.String)
	if err != nil {
		return model.Message{}, fmt.Errorf("message %d: %w", msg.ID, err)
	}
	msg.Role = model.Role(role)
	msg.Content = content.String
	msg.Name = name.String
	msg.ToolCallID = toolCallID.String
	msg.ToolCalls = calls
	msg.CreatedAt = fromTimestamp(created)
	return msg, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) > previewLength {
		return string(runes[:previewLength]) + "..."
	}
	return content
}
