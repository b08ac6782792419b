package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// Store persists messages.
type Store interface {
	Insert(ctx context.Context, msg *Message) error
	Get(ctx context.Context, id string) (*Message, error)
	List(ctx context.Context, filter Filter) ([]Message, error)
	MarkRead(ctx context.Context, id string, reader types.ID) error
}

const messageColumns = `id, sender_id, sender_role, sender_rank, body, type, priority,
		department, municipality, thread_id, ai_assisted, read_by, created_at`

// Repository provides database operations for messages
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new message repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert creates a new message
func (r *Repository) Insert(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO org.messages (
			id, sender_id, sender_role, sender_rank, body, type, priority,
			department, municipality, thread_id, ai_assisted, read_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	readBy := msg.ReadBy
	if readBy == nil {
		readBy = []types.ID{}
	}

	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.SenderID, msg.SenderRole, msg.SenderRank, msg.Body, msg.Type, msg.Priority,
		msg.Department, msg.Municipality, msg.ThreadID, msg.AIAssisted, readBy,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("message with this ID already exists")
		}
		return errors.Wrap(err, "failed to create message")
	}

	return nil
}

// Get retrieves a message by ID
func (r *Repository) Get(ctx context.Context, id string) (*Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM org.messages WHERE id = $1`, messageColumns)

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("message", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get message")
	}

	return msg, nil
}

// List lists messages, newest first
func (r *Repository) List(ctx context.Context, filter Filter) ([]Message, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argNum))
		args = append(args, *filter.Type)
		argNum++
	}

	if filter.ThreadID != "" {
		conditions = append(conditions, fmt.Sprintf("thread_id = $%d", argNum))
		args = append(args, filter.ThreadID)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := 100
	if filter.Limit > 0 && filter.Limit <= 500 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM org.messages
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, messageColumns, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		messages = append(messages, *msg)
	}

	return messages, nil
}

// MarkRead records a reader on a message, once
func (r *Repository) MarkRead(ctx context.Context, id string, reader types.ID) error {
	query := `
		UPDATE org.messages
		SET read_by = array_append(read_by, $2)
		WHERE id = $1 AND NOT ($2 = ANY(read_by))`

	result, err := r.pool.Exec(ctx, query, id, reader)
	if err != nil {
		return errors.Wrap(err, "failed to mark message read")
	}

	if result.RowsAffected() == 0 {
		// Either unknown message or already read; distinguish.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM org.messages WHERE id = $1)`, id).Scan(&exists); err != nil {
			return errors.Wrap(err, "failed to check message existence")
		}
		if !exists {
			return errors.NotFound("message", id)
		}
	}

	return nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	msg := &Message{}
	err := row.Scan(
		&msg.ID, &msg.SenderID, &msg.SenderRole, &msg.SenderRank, &msg.Body, &msg.Type, &msg.Priority,
		&msg.Department, &msg.Municipality, &msg.ThreadID, &msg.AIAssisted, &msg.ReadBy, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}
