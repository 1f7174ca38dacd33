package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RatingRepo struct {
	pool *pgxpool.Pool
}

type RatingRecord struct {
	ID            int64
	SubjectUserID string
	RaterUserID   string
	Score         int
	CreatedAt     time.Time
}

func NewRatingRepo(pool *pgxpool.Pool) *RatingRepo {
	return &RatingRepo{pool: pool}
}

// Insert appends a rating and bumps the subject's denormalized aggregate
// in the same transaction. Repeated ratings from the same rater are all
// retained; there is no uniqueness constraint.
func (r *RatingRepo) Insert(ctx context.Context, tx pgx.Tx, subjectID, raterID string, score int) (RatingRecord, error) {
	if tx == nil {
		return RatingRecord{}, fmt.Errorf("transaction is required")
	}
	if strings.TrimSpace(subjectID) == "" || strings.TrimSpace(raterID) == "" {
		return RatingRecord{}, fmt.Errorf("invalid rating payload")
	}

	var rating RatingRecord
	err := tx.QueryRow(ctx, `
INSERT INTO ratings (subject_user_id, rater_user_id, score, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, subject_user_id, rater_user_id, score, created_at
`, subjectID, raterID, score).Scan(
		&rating.ID,
		&rating.SubjectUserID,
		&rating.RaterUserID,
		&rating.Score,
		&rating.CreatedAt,
	)
	if err != nil {
		return RatingRecord{}, fmt.Errorf("insert rating: %w", err)
	}

	result, err := tx.Exec(ctx, `
UPDATE users SET
	rating_count = rating_count + 1,
	rating_sum = rating_sum + $2,
	updated_at = NOW()
WHERE id = $1
`, subjectID, score)
	if err != nil {
		return RatingRecord{}, fmt.Errorf("bump rating aggregate: %w", err)
	}
	if result.RowsAffected() == 0 {
		return RatingRecord{}, ErrUserNotFound
	}

	return rating, nil
}

// Submit runs Insert inside its own transaction so the rating row and
// the aggregate bump commit together.
func (r *RatingRepo) Submit(ctx context.Context, subjectID, raterID string, score int) (RatingRecord, error) {
	if r.pool == nil {
		return RatingRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rating RatingRecord
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		rating, err = r.Insert(ctx, tx, subjectID, raterID, score)
		return err
	})
	if err != nil {
		return RatingRecord{}, err
	}

	return rating, nil
}

// Fold recomputes the aggregate from the full rating set. The
// denormalized counters on the user row and any cache entry are derived
// from this and can always be rebuilt from it.
func (r *RatingRepo) Fold(ctx context.Context, subjectID string) (count int64, sum int64, err error) {
	if r.pool == nil {
		return 0, 0, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(subjectID) == "" {
		return 0, 0, fmt.Errorf("invalid user id")
	}

	err = withRetry(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(SUM(score), 0)
FROM ratings
WHERE subject_user_id = $1
`, subjectID).Scan(&count, &sum)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("fold ratings: %w", err)
	}

	return count, sum, nil
}
