package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/2Clight/Skill-Swap/internal/repo/postgres"
)

// Review statuses a user moves through. UNSUBMITTED is the starting
// point; only APPROVED carries teaching privileges.
const (
	StatusUnsubmitted = "UNSUBMITTED"
	StatusPending     = "PENDING"
	StatusApproved    = "APPROVED"
	StatusRejected    = "REJECTED"
	StatusRevoked     = "REVOKED"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrValidation         = errors.New("invalid moderation input")
	ErrInvalidTransition  = errors.New("moderation transition not allowed")
	ErrNoCredentialOnFile = errors.New("no credential on file")
)

type Store interface {
	GetState(ctx context.Context, userID string) (pgrepo.ModerationStateRecord, error)
	SetCredential(ctx context.Context, userID, url string) error
	ApplyDecision(ctx context.Context, userID, status string, approved bool, rejectReason *string) error
	ListByStatus(ctx context.Context, status string, limit int) ([]pgrepo.ReviewQueueRecord, error)
}

// UserRemover detaches account deletion so moderation can purge a user
// without owning the profile lifecycle.
type UserRemover interface {
	Delete(ctx context.Context, userID string) error
}

type Service struct {
	log   *zap.Logger
	store Store
	users UserRemover
}

type State struct {
	UserID         string
	Status         string
	Approved       bool
	CertificateURL string
	RejectReason   string
	UpdatedAt      time.Time
}

type ReviewItem struct {
	UserID         string
	ProfileName    string
	Email          string
	CertificateURL string
	SubmittedAt    time.Time
}

func NewService(log *zap.Logger, store Store, users UserRemover) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log, store: store, users: users}
}

func (s *Service) GetState(ctx context.Context, userID string) (State, error) {
	if s.store == nil {
		return State{}, fmt.Errorf("moderation store is nil")
	}
	record, err := s.store.GetState(ctx, userID)
	if err != nil {
		return State{}, mapStoreErr(err)
	}
	return fromRecord(record), nil
}

// SubmitCredential records the owner's certificate and queues the user
// for review. Allowed from UNSUBMITTED, REJECTED and REVOKED; a user
// already in review or already approved must not silently restart the
// process.
func (s *Service) SubmitCredential(ctx context.Context, userID, url string) (State, error) {
	if s.store == nil {
		return State{}, fmt.Errorf("moderation store is nil")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return State{}, fmt.Errorf("%w: certificate url is required", ErrValidation)
	}

	record, err := s.store.GetState(ctx, userID)
	if err != nil {
		return State{}, mapStoreErr(err)
	}
	switch record.Status {
	case StatusUnsubmitted, StatusRejected, StatusRevoked:
	default:
		return State{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, record.Status)
	}

	if err := s.store.SetCredential(ctx, userID, url); err != nil {
		return State{}, mapStoreErr(err)
	}

	s.log.Info("credential submitted for review", zap.String("user_id", userID))
	return s.GetState(ctx, userID)
}

// Approve grants teaching privileges. Only PENDING users with a
// certificate on file qualify; the certificate check guards against a
// queue entry whose upload was deleted out of band.
func (s *Service) Approve(ctx context.Context, userID string) (State, error) {
	record, err := s.requireStatus(ctx, userID, StatusPending)
	if err != nil {
		return State{}, err
	}
	if record.CertificateURL == nil || strings.TrimSpace(*record.CertificateURL) == "" {
		return State{}, ErrNoCredentialOnFile
	}

	if err := s.store.ApplyDecision(ctx, userID, StatusApproved, true, nil); err != nil {
		return State{}, mapStoreErr(err)
	}

	s.log.Info("user approved", zap.String("user_id", userID))
	return s.GetState(ctx, userID)
}

// Reject turns down a PENDING submission with a reason the owner can act
// on.
func (s *Service) Reject(ctx context.Context, userID, reason string) (State, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return State{}, fmt.Errorf("%w: reject reason is required", ErrValidation)
	}
	if _, err := s.requireStatus(ctx, userID, StatusPending); err != nil {
		return State{}, err
	}

	if err := s.store.ApplyDecision(ctx, userID, StatusRejected, false, &reason); err != nil {
		return State{}, mapStoreErr(err)
	}

	s.log.Info("user rejected", zap.String("user_id", userID))
	return s.GetState(ctx, userID)
}

// Revoke withdraws previously granted privileges. The user keeps the
// certificate on file and may resubmit.
func (s *Service) Revoke(ctx context.Context, userID, reason string) (State, error) {
	if _, err := s.requireStatus(ctx, userID, StatusApproved); err != nil {
		return State{}, err
	}

	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonPtr = &trimmed
	}

	if err := s.store.ApplyDecision(ctx, userID, StatusRevoked, false, reasonPtr); err != nil {
		return State{}, mapStoreErr(err)
	}

	s.log.Warn("user approval revoked", zap.String("user_id", userID))
	return s.GetState(ctx, userID)
}

// Delete removes the account entirely. Unlike the decision paths it is
// valid from every status.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if s.users == nil {
		return fmt.Errorf("user remover is nil")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Warn("user deleted by moderator", zap.String("user_id", userID))
	return nil
}

// ListPending returns the review queue, oldest submission first.
func (s *Service) ListPending(ctx context.Context, limit int) ([]ReviewItem, error) {
	return s.listByStatus(ctx, StatusPending, limit)
}

func (s *Service) ListApproved(ctx context.Context, limit int) ([]ReviewItem, error) {
	return s.listByStatus(ctx, StatusApproved, limit)
}

func (s *Service) listByStatus(ctx context.Context, status string, limit int) ([]ReviewItem, error) {
	if s.store == nil {
		return nil, fmt.Errorf("moderation store is nil")
	}

	records, err := s.store.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, err
	}

	items := make([]ReviewItem, 0, len(records))
	for _, record := range records {
		item := ReviewItem{
			UserID:      record.UserID,
			ProfileName: record.ProfileName,
			Email:       record.Email,
			SubmittedAt: record.SubmittedAt,
		}
		if record.CertificateURL != nil {
			item.CertificateURL = *record.CertificateURL
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) requireStatus(ctx context.Context, userID, want string) (pgrepo.ModerationStateRecord, error) {
	if s.store == nil {
		return pgrepo.ModerationStateRecord{}, fmt.Errorf("moderation store is nil")
	}
	record, err := s.store.GetState(ctx, userID)
	if err != nil {
		return pgrepo.ModerationStateRecord{}, mapStoreErr(err)
	}
	if record.Status != want {
		return pgrepo.ModerationStateRecord{}, fmt.Errorf("%w: %s, want %s", ErrInvalidTransition, record.Status, want)
	}
	return record, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, pgrepo.ErrUserNotFound) {
		return ErrNotFound
	}
	return err
}

func fromRecord(record pgrepo.ModerationStateRecord) State {
	state := State{
		UserID:    record.UserID,
		Status:    record.Status,
		Approved:  record.Approved,
		UpdatedAt: record.UpdatedAt,
	}
	if record.CertificateURL != nil {
		state.CertificateURL = *record.CertificateURL
	}
	if record.RejectReason != nil {
		state.RejectReason = *record.RejectReason
	}
	return state
}
