package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrChannelNotFound = errors.New("channel not found")

type ChannelRepo struct {
	pool *pgxpool.Pool
}

type ChannelRecord struct {
	ID        string
	UserA     string
	UserB     string
	CreatedAt time.Time
}

type ChannelListRecord struct {
	ID              string
	PeerID          string
	PeerName        string
	PeerPictureURL  *string
	LastMessageText *string
	LastMessageAt   *time.Time
	CreatedAt       time.Time
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

// CreateIfAbsent is the conditional-create half of getOrCreate. The id is
// a deterministic function of the member pair, so concurrent first
// contact from both members races on the same key and exactly one insert
// wins; the loser reads the winner's row.
func (r *ChannelRepo) CreateIfAbsent(ctx context.Context, id, userA, userB string) (ChannelRecord, bool, error) {
	if r.pool == nil {
		return ChannelRecord{}, false, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(userA) == "" || strings.TrimSpace(userB) == "" {
		return ChannelRecord{}, false, fmt.Errorf("invalid channel payload")
	}

	var channel ChannelRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO channels (id, user_a, user_b, created_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (id) DO NOTHING
RETURNING id, user_a, user_b, created_at
`, id, userA, userB).Scan(&channel.ID, &channel.UserA, &channel.UserB, &channel.CreatedAt)
	if err == nil {
		return channel, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ChannelRecord{}, false, fmt.Errorf("create channel: %w", err)
	}

	existing, err := r.Get(ctx, id)
	if err != nil {
		return ChannelRecord{}, false, err
	}

	return existing, false, nil
}

func (r *ChannelRepo) Get(ctx context.Context, id string) (ChannelRecord, error) {
	if r.pool == nil {
		return ChannelRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(id) == "" {
		return ChannelRecord{}, fmt.Errorf("invalid channel id")
	}

	var channel ChannelRecord
	err := withRetry(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `
SELECT id, user_a, user_b, created_at
FROM channels
WHERE id = $1
`, id).Scan(&channel.ID, &channel.UserA, &channel.UserB, &channel.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChannelRecord{}, ErrChannelNotFound
		}
		return ChannelRecord{}, fmt.Errorf("get channel: %w", err)
	}

	return channel, nil
}

// ListForUser returns the caller's conversations newest-activity first,
// with the peer's display fields and the latest message for the sidebar.
func (r *ChannelRepo) ListForUser(ctx context.Context, userID string, limit int) ([]ChannelListRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	c.id,
	CASE WHEN c.user_a = $1 THEN c.user_b ELSE c.user_a END AS peer_id,
	COALESCE(u.profile_name, ''),
	u.profile_picture_url,
	lm.body,
	lm.created_at,
	c.created_at
FROM channels c
LEFT JOIN users u ON u.id = CASE WHEN c.user_a = $1 THEN c.user_b ELSE c.user_a END
LEFT JOIN LATERAL (
	SELECT body, created_at
	FROM messages
	WHERE channel_id = c.id
	ORDER BY id DESC
	LIMIT 1
) lm ON TRUE
WHERE c.user_a = $1 OR c.user_b = $1
ORDER BY COALESCE(lm.created_at, c.created_at) DESC, c.id
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	items := make([]ChannelListRecord, 0, limit)
	for rows.Next() {
		var item ChannelListRecord
		if err := rows.Scan(
			&item.ID,
			&item.PeerID,
			&item.PeerName,
			&item.PeerPictureURL,
			&item.LastMessageText,
			&item.LastMessageAt,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan channel row: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate channels: %w", rows.Err())
	}

	return items, nil
}
