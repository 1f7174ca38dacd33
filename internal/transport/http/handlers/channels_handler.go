package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/2Clight/Skill-Swap/internal/services/auth"
	channelssvc "github.com/2Clight/Skill-Swap/internal/services/channels"
	"github.com/2Clight/Skill-Swap/internal/transport/http/dto"
	httperrors "github.com/2Clight/Skill-Swap/internal/transport/http/errors"
)

type ChannelsHandler struct {
	service *channelssvc.Service
}

func NewChannelsHandler(service *channelssvc.Service) *ChannelsHandler {
	return &ChannelsHandler{service: service}
}

func (h *ChannelsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHANNELS_SERVICE_UNAVAILABLE", "channels service is unavailable")
		return
	}

	var req dto.CreateChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	channel, err := h.service.GetOrCreate(r.Context(), identity.UserID, req.PeerID)
	if err != nil {
		switch {
		case errors.Is(err, channelssvc.ErrInvalidPair):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid channel pair")
		case errors.Is(err, channelssvc.ErrUnknownUser):
			writeNotFound(w, "USER_NOT_FOUND", "peer not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to open channel")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, toChannelResponse(channel))
}

func (h *ChannelsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHANNELS_SERVICE_UNAVAILABLE", "channels service is unavailable")
		return
	}

	items, err := h.service.ListForUser(r.Context(), identity.UserID, parseIntOrDefault(r.URL.Query().Get("limit"), 100))
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list channels")
		return
	}

	responseItems := make([]dto.ChannelListItemResponse, 0, len(items))
	for _, item := range items {
		responseItems = append(responseItems, dto.ChannelListItemResponse{
			ID:              item.ID,
			PeerID:          item.PeerID,
			PeerName:        item.PeerName,
			PeerPictureURL:  item.PeerPictureURL,
			LastMessageText: item.LastMessageText,
			LastMessageAt:   item.LastMessageAt,
			CreatedAt:       item.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.ChannelsResponse{Items: responseItems})
}

func (h *ChannelsHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHANNELS_SERVICE_UNAVAILABLE", "channels service is unavailable")
		return
	}

	channel, err := h.service.Get(r.Context(), chi.URLParam(r, "channelID"))
	if err != nil {
		switch {
		case errors.Is(err, channelssvc.ErrNotFound):
			writeNotFound(w, "CHANNEL_NOT_FOUND", "channel not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load channel")
		}
		return
	}
	if !channel.IsMember(identity.UserID) {
		writeForbidden(w, "FORBIDDEN", "not a channel member")
		return
	}

	httperrors.Write(w, http.StatusOK, toChannelResponse(channel))
}

func toChannelResponse(channel channelssvc.Channel) dto.ChannelResponse {
	return dto.ChannelResponse{
		ID:        channel.ID,
		Members:   []string{channel.Members[0], channel.Members[1]},
		CreatedAt: channel.CreatedAt,
	}
}
