package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/2Clight/Skill-Swap/internal/services/auth"
	moderationsvc "github.com/2Clight/Skill-Swap/internal/services/moderation"
	"github.com/2Clight/Skill-Swap/internal/transport/http/dto"
	httperrors "github.com/2Clight/Skill-Swap/internal/transport/http/errors"
)

type ModerationHandler struct {
	service *moderationsvc.Service
}

func NewModerationHandler(service *moderationsvc.Service) *ModerationHandler {
	return &ModerationHandler{service: service}
}

// MyState lets the owner poll where their submission stands.
func (h *ModerationHandler) MyState(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	state, err := h.service.GetState(r.Context(), identity.UserID)
	if err != nil {
		handleModerationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toModerationStateResponse(state))
}

func (h *ModerationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	var req dto.SubmitCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	state, err := h.service.SubmitCredential(r.Context(), identity.UserID, req.CertificateURL)
	if err != nil {
		handleModerationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toModerationStateResponse(state))
}

func (h *ModerationHandler) Queue(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}
	h.listReview(w, r, h.service.ListPending)
}

func (h *ModerationHandler) Approved(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}
	h.listReview(w, r, h.service.ListApproved)
}

func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	state, err := h.service.Approve(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleModerationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toModerationStateResponse(state))
}

func (h *ModerationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	var req dto.RejectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	state, err := h.service.Reject(r.Context(), chi.URLParam(r, "userID"), req.Reason)
	if err != nil {
		handleModerationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toModerationStateResponse(state))
}

func (h *ModerationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	var req dto.RevokeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	state, err := h.service.Revoke(r.Context(), chi.URLParam(r, "userID"), req.Reason)
	if err != nil {
		handleModerationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toModerationStateResponse(state))
}

func (h *ModerationHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "userID")); err != nil {
		handleModerationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *ModerationHandler) listReview(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, limit int) ([]moderationsvc.ReviewItem, error)) {
	items, err := list(r.Context(), parseIntOrDefault(r.URL.Query().Get("limit"), 100))
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load review queue")
		return
	}

	responseItems := make([]dto.ReviewItemResponse, 0, len(items))
	for _, item := range items {
		responseItems = append(responseItems, dto.ReviewItemResponse{
			UserID:         item.UserID,
			ProfileName:    item.ProfileName,
			Email:          item.Email,
			CertificateURL: item.CertificateURL,
			SubmittedAt:    item.SubmittedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.ReviewQueueResponse{Items: responseItems})
}

func handleModerationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, moderationsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid moderation request")
	case errors.Is(err, moderationsvc.ErrNotFound):
		writeNotFound(w, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, moderationsvc.ErrInvalidTransition):
		writeConflict(w, "INVALID_TRANSITION", "moderation transition not allowed")
	case errors.Is(err, moderationsvc.ErrNoCredentialOnFile):
		writeConflict(w, "NO_CREDENTIAL", "no credential on file")
	default:
		writeInternal(w, "INTERNAL_ERROR", "moderation request failed")
	}
}

func toModerationStateResponse(state moderationsvc.State) dto.ModerationStateResponse {
	return dto.ModerationStateResponse{
		UserID:         state.UserID,
		Status:         state.Status,
		Approved:       state.Approved,
		CertificateURL: state.CertificateURL,
		RejectReason:   state.RejectReason,
		UpdatedAt:      state.UpdatedAt,
	}
}
