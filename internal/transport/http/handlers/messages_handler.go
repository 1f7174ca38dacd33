package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/2Clight/Skill-Swap/internal/services/auth"
	chatsvc "github.com/2Clight/Skill-Swap/internal/services/chat"
	"github.com/2Clight/Skill-Swap/internal/transport/http/dto"
	httperrors "github.com/2Clight/Skill-Swap/internal/transport/http/errors"
)

type MessagesHandler struct {
	service           *chatsvc.Service
	heartbeatInterval time.Duration
}

func NewMessagesHandler(service *chatsvc.Service, heartbeatInterval time.Duration) *MessagesHandler {
	if heartbeatInterval <= 0 {
		heartbeatInterval = 25 * time.Second
	}
	return &MessagesHandler{service: service, heartbeatInterval: heartbeatInterval}
}

func (h *MessagesHandler) Post(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	var req dto.PostMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	msg, err := h.service.Post(r.Context(), chi.URLParam(r, "channelID"), identity.UserID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, chatsvc.ErrEmptyMessage):
			writeBadRequest(w, "VALIDATION_ERROR", "message body is empty")
		case errors.Is(err, chatsvc.ErrBodyTooLong):
			writeBadRequest(w, "VALIDATION_ERROR", "message body is too long")
		case errors.Is(err, chatsvc.ErrNotFound):
			writeNotFound(w, "CHANNEL_NOT_FOUND", "channel not found")
		case errors.Is(err, chatsvc.ErrInvalidSender):
			writeForbidden(w, "FORBIDDEN", "not a channel member")
		case errors.Is(err, chatsvc.ErrRateLimited):
			retryAfter := int64(60)
			var limited *chatsvc.RateLimitedError
			if errors.As(err, &limited) {
				retryAfter = int64(math.Ceil(limited.RetryAfter.Seconds()))
			}
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many messages, slow down",
				RetryAfterSec: retryAfter,
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to post message")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, toMessageResponse(msg))
}

func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	messages, err := h.service.History(
		r.Context(),
		chi.URLParam(r, "channelID"),
		identity.UserID,
		parseInt64OrDefault(r.URL.Query().Get("after_id"), 0),
		parseIntOrDefault(r.URL.Query().Get("limit"), 0),
	)
	if err != nil {
		switch {
		case errors.Is(err, chatsvc.ErrNotFound):
			writeNotFound(w, "CHANNEL_NOT_FOUND", "channel not found")
		case errors.Is(err, chatsvc.ErrInvalidSender):
			writeForbidden(w, "FORBIDDEN", "not a channel member")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load messages")
		}
		return
	}

	items := make([]dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		items = append(items, toMessageResponse(msg))
	}

	httperrors.Write(w, http.StatusOK, dto.MessagesResponse{Items: items})
}

// Stream serves a channel subscription as server-sent events: stored
// messages after the client's cursor first, then live ones. The cursor
// comes from either the after_id query param or the Last-Event-ID header
// a reconnecting EventSource sends.
func (h *MessagesHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternal(w, "STREAMING_UNSUPPORTED", "response writer does not support streaming")
		return
	}

	afterID := parseInt64OrDefault(r.URL.Query().Get("after_id"), 0)
	if lastEvent := parseInt64OrDefault(r.Header.Get("Last-Event-ID"), 0); lastEvent > afterID {
		afterID = lastEvent
	}

	events, err := h.service.Subscribe(r.Context(), chi.URLParam(r, "channelID"), identity.UserID, afterID)
	if err != nil {
		switch {
		case errors.Is(err, chatsvc.ErrNotFound):
			writeNotFound(w, "CHANNEL_NOT_FOUND", "channel not found")
		case errors.Is(err, chatsvc.ErrInvalidSender):
			writeForbidden(w, "FORBIDDEN", "not a channel member")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to open stream")
		}
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			if ev.Err != nil {
				writeSSE(w, 0, "error", httperrors.APIError{Code: "STREAM_CLOSED", Message: ev.Err.Error()})
				flusher.Flush()
				return
			}
			writeSSE(w, ev.Message.ID, "message", toMessageResponse(ev.Message))
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, id int64, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if id > 0 {
		fmt.Fprintf(w, "id: %d\n", id)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func toMessageResponse(msg chatsvc.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		SenderID:  msg.SenderID,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}
}
