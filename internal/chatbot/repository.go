package chatbot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const messageColumns = `id, user_id, query, response, search_results, search_urls, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(s scanner) (*Message, error) {
	var m Message
	var results, urls []byte
	if err := s.Scan(&m.ID, &m.UserID, &m.Query, &m.Response, &results, &urls, &m.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &m.SearchResults); err != nil {
		return nil, fmt.Errorf("failed to decode search_results: %w", err)
	}
	if err := json.Unmarshal(urls, &m.SearchURLs); err != nil {
		return nil, fmt.Errorf("failed to decode search_urls: %w", err)
	}
	return &m, nil
}

func (r *Repository) CreateMessage(ctx context.Context, m Message) (*Message, error) {
	results, err := json.Marshal(m.SearchResults)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search_results: %w", err)
	}
	urls, err := json.Marshal(m.SearchURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search_urls: %w", err)
	}

	query := `
		INSERT INTO chat_messages (user_id, query, response, search_results, search_urls)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + messageColumns

	out, err := scanMessage(r.db.QueryRowContext(ctx, query, m.UserID, m.Query, m.Response, results, urls))
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat message: %w", err)
	}
	return out, nil
}

// ListMessages returns the user's messages newest first.
func (r *Repository) ListMessages(ctx context.Context, userID string) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM chat_messages WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}
	return messages, nil
}

func (r *Repository) DeleteMessage(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete chat message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrMessageNotFound
	}
	return nil
}
