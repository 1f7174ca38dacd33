package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pgrepo "github.com/2Clight/Skill-Swap/internal/repo/postgres"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrValidation = errors.New("validation error")
)

type Store interface {
	Get(ctx context.Context, userID string) (pgrepo.UserRecord, error)
	Ensure(ctx context.Context, userID, profileName, email string) (pgrepo.UserRecord, error)
	UpdateSkills(ctx context.Context, userID string, possessed, toLearn *[]string) (pgrepo.UserRecord, error)
	UpdateProfile(ctx context.Context, userID string, update pgrepo.ProfileUpdate) (pgrepo.UserRecord, error)
	SetActive(ctx context.Context, userID string, active bool) error
	ListActive(ctx context.Context) ([]pgrepo.UserRecord, error)
	Delete(ctx context.Context, userID string) (bool, error)
}

type Service struct {
	store Store
}

type User struct {
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
	CertificateURL    string
	ProfilePictureURL string
	RatingCount       int64
	RatingMean        float64
	CreatedAt         time.Time
}

// ProfileInput carries a partial profile edit; nil fields stay untouched.
type ProfileInput struct {
	ProfileName       *string
	Country           *string
	Description       *string
	Languages         *[]string
	ProfilePictureURL *string
}

type SkillsInput struct {
	PossessedSkills *[]string
	SkillsToLearn   *[]string
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrValidation
	}
	if s.store == nil {
		return User{}, fmt.Errorf("user store is nil")
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	return fromRecord(record), nil
}

// Ensure creates the profile on first identity-provider sign-in. It is
// idempotent and safe to call on every authenticated request.
func (s *Service) Ensure(ctx context.Context, userID, profileName, email string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrValidation
	}
	if s.store == nil {
		return User{}, fmt.Errorf("user store is nil")
	}

	record, err := s.store.Ensure(ctx, userID, profileName, email)
	if err != nil {
		return User{}, err
	}

	return fromRecord(record), nil
}

func (s *Service) UpdateSkills(ctx context.Context, userID string, input SkillsInput) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrValidation
	}
	if input.PossessedSkills == nil && input.SkillsToLearn == nil {
		return User{}, ErrValidation
	}
	if s.store == nil {
		return User{}, fmt.Errorf("user store is nil")
	}

	record, err := s.store.UpdateSkills(ctx, userID,
		normalizeSkillSet(input.PossessedSkills),
		normalizeSkillSet(input.SkillsToLearn),
	)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	return fromRecord(record), nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrValidation
	}
	if s.store == nil {
		return User{}, fmt.Errorf("user store is nil")
	}

	record, err := s.store.UpdateProfile(ctx, userID, pgrepo.ProfileUpdate{
		ProfileName:       trimmed(input.ProfileName),
		Country:           trimmed(input.Country),
		Description:       trimmed(input.Description),
		Languages:         normalizeSkillSet(input.Languages),
		ProfilePictureURL: trimmed(input.ProfilePictureURL),
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	return fromRecord(record), nil
}

func (s *Service) SetActive(ctx context.Context, userID string, active bool) error {
	if strings.TrimSpace(userID) == "" {
		return ErrValidation
	}
	if s.store == nil {
		return fmt.Errorf("user store is nil")
	}

	if err := s.store.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	return nil
}

func (s *Service) ListActive(ctx context.Context) ([]User, error) {
	if s.store == nil {
		return nil, fmt.Errorf("user store is nil")
	}

	records, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]User, 0, len(records))
	for _, record := range records {
		result = append(result, fromRecord(record))
	}
	return result, nil
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrValidation
	}
	if s.store == nil {
		return fmt.Errorf("user store is nil")
	}

	deleted, err := s.store.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	return nil
}

func fromRecord(record pgrepo.UserRecord) User {
	user := User{
		ID:               record.ID,
		ProfileName:      record.ProfileName,
		Email:            record.Email,
		Country:          record.Country,
		Description:      record.Description,
		Languages:        record.Languages,
		PossessedSkills:  record.PossessedSkills,
		SkillsToLearn:    record.SkillsToLearn,
		Approved:         record.Approved,
		Active:           record.Active,
		ModerationStatus: record.ModerationStatus,
		RatingCount:      record.RatingCount,
		CreatedAt:        record.CreatedAt,
	}
	if record.CertificateURL != nil {
		user.CertificateURL = *record.CertificateURL
	}
	if record.ProfilePictureURL != nil {
		user.ProfilePictureURL = *record.ProfilePictureURL
	}
	if record.RatingCount > 0 {
		user.RatingMean = float64(record.RatingSum) / float64(record.RatingCount)
	}
	return user
}

// normalizeSkillSet trims entries and drops empties and duplicates while
// keeping first-seen order. A nil input stays nil so the store leaves the
// field untouched.
func normalizeSkillSet(input *[]string) *[]string {
	if input == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(*input))
	out := make([]string, 0, len(*input))
	for _, raw := range *input {
		skill := strings.TrimSpace(raw)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, skill)
	}

	return &out
}

func trimmed(input *string) *string {
	if input == nil {
		return nil
	}
	value := strings.TrimSpace(*input)
	return &value
}
