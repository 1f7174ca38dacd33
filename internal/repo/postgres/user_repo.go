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

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserRecord struct {
	ID                string
	ProfileName       string
	Email             string
	Country           string
	Description       string
	Languages         []string
	PossessedSkills   []string
	SkillsToLearn     []string
	Approved          bool
	Active            bool
	ModerationStatus  string
	CertificateURL    *string
	RejectReason      *string
	ProfilePictureURL *string
	RatingCount       int64
	RatingSum         int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProfileUpdate carries a partial profile edit. Nil fields are left
// untouched; writes are last-writer-wins per field.
type ProfileUpdate struct {
	ProfileName       *string
	Country           *string
	Description       *string
	Languages         *[]string
	ProfilePictureURL *string
}

const userColumns = `
id, profile_name, email, country, description,
COALESCE(languages, '{}'), COALESCE(possessed_skills, '{}'), COALESCE(skills_to_learn, '{}'),
approved, active, moderation_status, certificate_url, reject_reason, profile_picture_url,
rating_count, rating_sum, created_at, updated_at`

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Get(ctx context.Context, userID string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}

	var user UserRecord
	err := withRetry(ctx, func(ctx context.Context) error {
		return scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1
`, userID), &user)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// Ensure creates the user row on first identity-provider sign-in and is a
// cheap touch afterwards.
func (r *UserRepo) Ensure(ctx context.Context, userID, profileName, email string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}

	var user UserRecord
	err := scanUser(r.pool.QueryRow(ctx, `
INSERT INTO users (id, profile_name, email, moderation_status, created_at, updated_at)
VALUES ($1, $2, $3, 'UNSUBMITTED', NOW(), NOW())
ON CONFLICT (id) DO UPDATE SET
	profile_name = CASE WHEN EXCLUDED.profile_name <> '' THEN EXCLUDED.profile_name ELSE users.profile_name END,
	email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE users.email END,
	updated_at = NOW()
RETURNING `+userColumns+`
`, userID, strings.TrimSpace(profileName), strings.TrimSpace(email)), &user)
	if err != nil {
		return UserRecord{}, fmt.Errorf("ensure user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) UpdateSkills(ctx context.Context, userID string, possessed, toLearn *[]string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}

	var user UserRecord
	err := scanUser(r.pool.QueryRow(ctx, `
UPDATE users SET
	possessed_skills = COALESCE($2::text[], possessed_skills),
	skills_to_learn = COALESCE($3::text[], skills_to_learn),
	updated_at = NOW()
WHERE id = $1
RETURNING `+userColumns+`
`, userID, possessed, toLearn), &user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("update user skills: %w", err)
	}

	return user, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}

	var user UserRecord
	err := scanUser(r.pool.QueryRow(ctx, `
UPDATE users SET
	profile_name = COALESCE($2::text, profile_name),
	country = COALESCE($3::text, country),
	description = COALESCE($4::text, description),
	languages = COALESCE($5::text[], languages),
	profile_picture_url = COALESCE($6::text, profile_picture_url),
	updated_at = NOW()
WHERE id = $1
RETURNING `+userColumns+`
`, userID, update.ProfileName, update.Country, update.Description, update.Languages, update.ProfilePictureURL), &user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("update user profile: %w", err)
	}

	return user, nil
}

func (r *UserRepo) SetActive(ctx context.Context, userID string, active bool) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("invalid user id")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE users SET active = $2, updated_at = NOW()
WHERE id = $1
`, userID, active)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ListActive returns the matching snapshot: every active user regardless
// of approval. Approval only gates the teaching side of a match and is
// applied by the match engine, not here.
func (r *UserRepo) ListActive(ctx context.Context) ([]UserRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	var users []UserRecord
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users
WHERE active = TRUE
ORDER BY id
`)
		if err != nil {
			return err
		}
		defer rows.Close()

		users = users[:0]
		for rows.Next() {
			var user UserRecord
			if err := scanUser(rows, &user); err != nil {
				return err
			}
			users = append(users, user)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}

	return users, nil
}

func (r *UserRepo) Exists(ctx context.Context, userID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return false, nil
	}

	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1`, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return true, nil
}

// Delete removes the user from all future listings. Channels and messages
// the user took part in are intentionally retained.
func (r *UserRepo) Delete(ctx context.Context, userID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return false, fmt.Errorf("invalid user id")
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row, user *UserRecord) error {
	return row.Scan(
		&user.ID,
		&user.ProfileName,
		&user.Email,
		&user.Country,
		&user.Description,
		&user.Languages,
		&user.PossessedSkills,
		&user.SkillsToLearn,
		&user.Approved,
		&user.Active,
		&user.ModerationStatus,
		&user.CertificateURL,
		&user.RejectReason,
		&user.ProfilePictureURL,
		&user.RatingCount,
		&user.RatingSum,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
