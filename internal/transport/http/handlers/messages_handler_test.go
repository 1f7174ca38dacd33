package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	pgrepo "github.com/2Clight/Skill-Swap/internal/repo/postgres"
	authsvc "github.com/2Clight/Skill-Swap/internal/services/auth"
	channelssvc "github.com/2Clight/Skill-Swap/internal/services/channels"
	chatsvc "github.com/2Clight/Skill-Swap/internal/services/chat"
)

type messageStoreStub struct {
	nextID   int64
	messages []pgrepo.MessageRecord
}

func (s *messageStoreStub) Insert(_ context.Context, channelID, senderID, body string) (pgrepo.MessageRecord, error) {
	s.nextID++
	record := pgrepo.MessageRecord{
		ID:        s.nextID,
		ChannelID: channelID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	s.messages = append(s.messages, record)
	return record, nil
}

func (s *messageStoreStub) ListByChannel(_ context.Context, channelID string, afterID int64, limit int) ([]pgrepo.MessageRecord, error) {
	var out []pgrepo.MessageRecord
	for _, record := range s.messages {
		if record.ChannelID != channelID || record.ID <= afterID {
			continue
		}
		out = append(out, record)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type channelDirectoryStub struct{}

func (channelDirectoryStub) Get(_ context.Context, channelID string) (channelssvc.Channel, error) {
	if channelID != "alice_bob" {
		return channelssvc.Channel{}, channelssvc.ErrNotFound
	}
	return channelssvc.Channel{ID: "alice_bob", Members: [2]string{"alice", "bob"}}, nil
}

type limiterStub struct {
	count int64
	ttl   time.Duration
}

func (s limiterStub) IncrementWindow(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return s.count, s.ttl, nil
}

func newChatHandler() (*MessagesHandler, *chatsvc.Service) {
	svc := chatsvc.NewService(zap.NewNop(), &messageStoreStub{}, channelDirectoryStub{}, chatsvc.NewHub(16), nil, 0, 50)
	return NewMessagesHandler(svc, 50*time.Millisecond), svc
}

func newChatRouter(h *MessagesHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/v1/channels/{channelID}/messages", h.Post)
	r.Get("/v1/channels/{channelID}/messages", h.List)
	r.Get("/v1/channels/{channelID}/stream", h.Stream)
	return r
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{
		UserID: userID,
		Role:   "USER",
	}))
}

func TestPostMessageHandler(t *testing.T) {
	h, _ := newChatHandler()
	r := newChatRouter(h)

	body, _ := json.Marshal(map[string]string{"body": "hello"})
	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/channels/alice_bob/messages", bytes.NewReader(body)), "alice")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var payload struct {
		ID       int64  `json:"id"`
		SenderID string `json:"sender_id"`
		Body     string `json:"body"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != 1 || payload.SenderID != "alice" || payload.Body != "hello" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestPostMessageHandlerRejectsEmptyBody(t *testing.T) {
	h, _ := newChatHandler()
	r := newChatRouter(h)

	body, _ := json.Marshal(map[string]string{"body": "   "})
	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/channels/alice_bob/messages", bytes.NewReader(body)), "alice")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestPostMessageHandlerForbidsNonMember(t *testing.T) {
	h, _ := newChatHandler()
	r := newChatRouter(h)

	body, _ := json.Marshal(map[string]string{"body": "hi"})
	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/channels/alice_bob/messages", bytes.NewReader(body)), "carol")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestPostMessageHandlerRateLimited(t *testing.T) {
	svc := chatsvc.NewService(zap.NewNop(), &messageStoreStub{}, channelDirectoryStub{}, chatsvc.NewHub(16), limiterStub{count: 5, ttl: 17 * time.Second}, 1, 50)
	r := newChatRouter(NewMessagesHandler(svc, 50*time.Millisecond))

	body, _ := json.Marshal(map[string]string{"body": "hello"})
	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/channels/alice_bob/messages", bytes.NewReader(body)), "alice")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: got %d want %d: %s", rr.Code, http.StatusTooManyRequests, rr.Body.String())
	}

	var payload struct {
		Code          string `json:"code"`
		RetryAfterSec int64  `json:"retry_after_sec"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "RATE_LIMITED" {
		t.Fatalf("unexpected code: %q", payload.Code)
	}
	// The hint reflects the limiter's window remainder, not a constant.
	if payload.RetryAfterSec != 17 {
		t.Fatalf("retry_after_sec = %d, want 17", payload.RetryAfterSec)
	}
}

func TestListMessagesHandlerAfterID(t *testing.T) {
	h, svc := newChatHandler()
	r := newChatRouter(h)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		if _, err := svc.Post(ctx, "alice_bob", "alice", text); err != nil {
			t.Fatalf("seed post: %v", err)
		}
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/v1/channels/alice_bob/messages?after_id=1", nil), "bob")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload struct {
		Items []struct {
			ID   int64  `json:"id"`
			Body string `json:"body"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 2 || payload.Items[0].Body != "two" || payload.Items[1].Body != "three" {
		t.Fatalf("unexpected items: %+v", payload.Items)
	}
}

func TestStreamHandlerReplaysHistory(t *testing.T) {
	h, svc := newChatHandler()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, asUser(req, "bob"))
		})
	})
	r.Get("/v1/channels/{channelID}/stream", h.Stream)

	ts := httptest.NewServer(r)
	defer ts.Close()

	for _, text := range []string{"one", "two"} {
		if _, err := svc.Post(context.Background(), "alice_bob", "alice", text); err != nil {
			t.Fatalf("seed post: %v", err)
		}
	}

	resp, err := http.Get(ts.URL + "/v1/channels/alice_bob/stream")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", ct)
	}

	var bodies []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() && len(bodies) < 2 {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Fatalf("decode event data: %v", err)
		}
		bodies = append(bodies, msg.Body)
	}

	if len(bodies) != 2 || bodies[0] != "one" || bodies[1] != "two" {
		t.Fatalf("unexpected replayed bodies: %v", bodies)
	}
}
