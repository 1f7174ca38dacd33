package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

type MessageRecord struct {
	ID        int64
	ChannelID string
	SenderID  string
	Body      string
	CreatedAt time.Time
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Insert appends a message. The id comes from a bigserial and the
// timestamp from the database clock, so both are assigned at write time
// and ascend together within a channel.
func (r *MessageRepo) Insert(ctx context.Context, channelID, senderID, body string) (MessageRecord, error) {
	if r.pool == nil {
		return MessageRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(channelID) == "" || strings.TrimSpace(senderID) == "" || body == "" {
		return MessageRecord{}, fmt.Errorf("invalid message payload")
	}

	var msg MessageRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO messages (channel_id, sender_id, body, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, channel_id, sender_id, body, created_at
`, channelID, senderID, body).Scan(
		&msg.ID,
		&msg.ChannelID,
		&msg.SenderID,
		&msg.Body,
		&msg.CreatedAt,
	)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

// ListByChannel returns messages with id greater than afterID, ascending.
// afterID zero means from the beginning.
func (r *MessageRepo) ListByChannel(ctx context.Context, channelID string, afterID int64, limit int) ([]MessageRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("invalid channel id")
	}
	if limit <= 0 {
		limit = 200
	}

	var messages []MessageRecord
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `
SELECT id, channel_id, sender_id, body, created_at
FROM messages
WHERE channel_id = $1 AND id > $2
ORDER BY id ASC
LIMIT $3
`, channelID, afterID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		messages = messages[:0]
		for rows.Next() {
			var msg MessageRecord
			if err := rows.Scan(
				&msg.ID,
				&msg.ChannelID,
				&msg.SenderID,
				&msg.Body,
				&msg.CreatedAt,
			); err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return messages, nil
}
