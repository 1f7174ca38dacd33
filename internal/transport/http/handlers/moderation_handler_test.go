package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	pgrepo "github.com/2Clight/Skill-Swap/internal/repo/postgres"
	moderationsvc "github.com/2Clight/Skill-Swap/internal/services/moderation"
)

type moderationStoreStub struct {
	states map[string]*pgrepo.ModerationStateRecord
}

func newModerationStoreStub() *moderationStoreStub {
	return &moderationStoreStub{states: make(map[string]*pgrepo.ModerationStateRecord)}
}

func (s *moderationStoreStub) GetState(_ context.Context, userID string) (pgrepo.ModerationStateRecord, error) {
	state, ok := s.states[userID]
	if !ok {
		return pgrepo.ModerationStateRecord{}, pgrepo.ErrUserNotFound
	}
	return *state, nil
}

func (s *moderationStoreStub) SetCredential(_ context.Context, userID, url string) error {
	state, ok := s.states[userID]
	if !ok {
		return pgrepo.ErrUserNotFound
	}
	state.Status = moderationsvc.StatusPending
	state.CertificateURL = &url
	state.RejectReason = nil
	state.UpdatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return nil
}

func (s *moderationStoreStub) ApplyDecision(_ context.Context, userID, status string, approved bool, rejectReason *string) error {
	state, ok := s.states[userID]
	if !ok {
		return pgrepo.ErrUserNotFound
	}
	state.Status = status
	state.Approved = approved
	state.RejectReason = rejectReason
	state.UpdatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return nil
}

func (s *moderationStoreStub) ListByStatus(_ context.Context, status string, limit int) ([]pgrepo.ReviewQueueRecord, error) {
	var out []pgrepo.ReviewQueueRecord
	for id, state := range s.states {
		if state.Status != status {
			continue
		}
		out = append(out, pgrepo.ReviewQueueRecord{
			UserID:         id,
			CertificateURL: state.CertificateURL,
			SubmittedAt:    state.UpdatedAt,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type userRemoverStub struct {
	deleted []string
}

func (s *userRemoverStub) Delete(_ context.Context, userID string) error {
	s.deleted = append(s.deleted, userID)
	return nil
}

func newModerationRouter(store *moderationStoreStub) chi.Router {
	svc := moderationsvc.NewService(zap.NewNop(), store, &userRemoverStub{})
	h := NewModerationHandler(svc)

	r := chi.NewRouter()
	r.Get("/v1/moderation/me", h.MyState)
	r.Post("/v1/moderation/submission", h.Submit)
	r.Get("/v1/moderation/queue", h.Queue)
	r.Post("/v1/moderation/{userID}/approve", h.Approve)
	r.Post("/v1/moderation/{userID}/reject", h.Reject)
	return r
}

func seedState(store *moderationStoreStub, userID, status string, certURL string) {
	state := &pgrepo.ModerationStateRecord{
		UserID: userID,
		Status: status,
	}
	if certURL != "" {
		state.CertificateURL = &certURL
	}
	store.states[userID] = state
}

func decodeModerationState(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestSubmitCredentialHandler(t *testing.T) {
	store := newModerationStoreStub()
	seedState(store, "alice", moderationsvc.StatusUnsubmitted, "")
	r := newModerationRouter(store)

	body, _ := json.Marshal(map[string]string{"certificate_url": "certificates/alice/guitar.pdf"})
	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/moderation/submission", bytes.NewReader(body)), "alice")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	payload := decodeModerationState(t, rr.Body.Bytes())
	if payload["status"] != moderationsvc.StatusPending {
		t.Fatalf("unexpected status in payload: %v", payload["status"])
	}
	if payload["certificate_url"] != "certificates/alice/guitar.pdf" {
		t.Fatalf("unexpected certificate url: %v", payload["certificate_url"])
	}
}

func TestApproveHandlerWithoutCredential(t *testing.T) {
	store := newModerationStoreStub()
	seedState(store, "bob", moderationsvc.StatusPending, "")
	r := newModerationRouter(store)

	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/moderation/bob/approve", nil), "mod")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("unexpected status: got %d want %d: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
	payload := decodeModerationState(t, rr.Body.Bytes())
	if payload["code"] != "NO_CREDENTIAL" {
		t.Fatalf("unexpected error code: %v", payload["code"])
	}
}

func TestApproveHandler(t *testing.T) {
	store := newModerationStoreStub()
	seedState(store, "bob", moderationsvc.StatusPending, "certificates/bob/python.pdf")
	r := newModerationRouter(store)

	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/moderation/bob/approve", nil), "mod")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	payload := decodeModerationState(t, rr.Body.Bytes())
	if payload["status"] != moderationsvc.StatusApproved || payload["approved"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestApproveHandlerUnknownUser(t *testing.T) {
	store := newModerationStoreStub()
	r := newModerationRouter(store)

	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/moderation/ghost/approve", nil), "mod")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRejectHandlerRequiresReason(t *testing.T) {
	store := newModerationStoreStub()
	seedState(store, "bob", moderationsvc.StatusPending, "certificates/bob/python.pdf")
	r := newModerationRouter(store)

	body, _ := json.Marshal(map[string]string{"reason": "   "})
	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/moderation/bob/reject", bytes.NewReader(body)), "mod")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestModerationQueueHandler(t *testing.T) {
	store := newModerationStoreStub()
	seedState(store, "bob", moderationsvc.StatusPending, "certificates/bob/python.pdf")
	seedState(store, "carol", moderationsvc.StatusApproved, "certificates/carol/violin.pdf")
	r := newModerationRouter(store)

	req := asUser(httptest.NewRequest(http.MethodGet, "/v1/moderation/queue", nil), "mod")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var payload struct {
		Items []struct {
			UserID string `json:"user_id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].UserID != "bob" {
		t.Fatalf("unexpected queue: %+v", payload.Items)
	}
}
