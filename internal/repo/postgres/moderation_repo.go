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

// ModerationRepo reads and writes the review fields of the user row:
// moderation_status, certificate_url, reject_reason and the approved flag.
// The owner writes certificate_url on submission; moderators write the
// rest. The two writer classes never touch the same field concurrently.
type ModerationRepo struct {
	pool *pgxpool.Pool
}

type ModerationStateRecord struct {
	UserID         string
	Status         string
	Approved       bool
	CertificateURL *string
	RejectReason   *string
	UpdatedAt      time.Time
}

type ReviewQueueRecord struct {
	UserID         string
	ProfileName    string
	Email          string
	CertificateURL *string
	SubmittedAt    time.Time
}

func NewModerationRepo(pool *pgxpool.Pool) *ModerationRepo {
	return &ModerationRepo{pool: pool}
}

func (r *ModerationRepo) GetState(ctx context.Context, userID string) (ModerationStateRecord, error) {
	if r.pool == nil {
		return ModerationStateRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return ModerationStateRecord{}, fmt.Errorf("invalid user id")
	}

	var state ModerationStateRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, moderation_status, approved, certificate_url, reject_reason, updated_at
FROM users
WHERE id = $1
`, userID).Scan(
		&state.UserID,
		&state.Status,
		&state.Approved,
		&state.CertificateURL,
		&state.RejectReason,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ModerationStateRecord{}, ErrUserNotFound
		}
		return ModerationStateRecord{}, fmt.Errorf("get moderation state: %w", err)
	}

	return state, nil
}

// SetCredential records a submitted certificate URL and moves the user to
// PENDING, clearing any prior rejection reason.
func (r *ModerationRepo) SetCredential(ctx context.Context, userID, url string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(url) == "" {
		return fmt.Errorf("invalid credential payload")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE users SET
	certificate_url = $2,
	moderation_status = 'PENDING',
	reject_reason = NULL,
	updated_at = NOW()
WHERE id = $1
`, userID, strings.TrimSpace(url))
	if err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ApplyDecision writes a moderator decision. The approved flag is read
// live by the match engine, so the change is visible to the next
// candidate computation with no cache to invalidate.
func (r *ModerationRepo) ApplyDecision(ctx context.Context, userID, status string, approved bool, rejectReason *string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(status) == "" {
		return fmt.Errorf("invalid moderation decision payload")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE users SET
	moderation_status = $2,
	approved = $3,
	reject_reason = $4,
	updated_at = NOW()
WHERE id = $1
`, userID, status, approved, rejectReason)
	if err != nil {
		return fmt.Errorf("apply moderation decision: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *ModerationRepo) ListByStatus(ctx context.Context, status string, limit int) ([]ReviewQueueRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(status) == "" {
		return nil, fmt.Errorf("moderation status is required")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, profile_name, email, certificate_url, updated_at
FROM users
WHERE moderation_status = $1
ORDER BY updated_at ASC, id ASC
LIMIT $2
`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list users by moderation status: %w", err)
	}
	defer rows.Close()

	items := make([]ReviewQueueRecord, 0, limit)
	for rows.Next() {
		var item ReviewQueueRecord
		if err := rows.Scan(
			&item.UserID,
			&item.ProfileName,
			&item.Email,
			&item.CertificateURL,
			&item.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review queue row: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate review queue: %w", rows.Err())
	}

	return items, nil
}
