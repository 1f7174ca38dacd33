package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/2Clight/Skill-Swap/internal/services/auth"
	userssvc "github.com/2Clight/Skill-Swap/internal/services/users"
	"github.com/2Clight/Skill-Swap/internal/transport/http/dto"
	httperrors "github.com/2Clight/Skill-Swap/internal/transport/http/errors"
)

type UsersHandler struct {
	service *userssvc.Service
}

func NewUsersHandler(service *userssvc.Service) *UsersHandler {
	return &UsersHandler{service: service}
}

// Me returns the caller's own profile, creating the row on first
// authenticated request.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	user, err := h.service.Ensure(r.Context(), identity.UserID, identity.Name, identity.Email)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load profile")
		return
	}

	httperrors.Write(w, http.StatusOK, toUserResponse(user, true))
}

func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	var req dto.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), identity.UserID, userssvc.ProfileInput{
		ProfileName:       req.ProfileName,
		Country:           req.Country,
		Description:       req.Description,
		Languages:         req.Languages,
		ProfilePictureURL: req.ProfilePictureURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, userssvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid profile update")
		case errors.Is(err, userssvc.ErrNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to update profile")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, toUserResponse(user, true))
}

func (h *UsersHandler) UpdateSkills(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	var req dto.UpdateSkillsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	user, err := h.service.UpdateSkills(r.Context(), identity.UserID, userssvc.SkillsInput{
		PossessedSkills: req.PossessedSkills,
		SkillsToLearn:   req.SkillsToLearn,
	})
	if err != nil {
		switch {
		case errors.Is(err, userssvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid skills update")
		case errors.Is(err, userssvc.ErrNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to update skills")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, toUserResponse(user, true))
}

// SetActive toggles listing visibility; the route decides the direction.
func (h *UsersHandler) SetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
			return
		}
		if h.service == nil {
			writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
			return
		}

		if err := h.service.SetActive(r.Context(), identity.UserID, active); err != nil {
			switch {
			case errors.Is(err, userssvc.ErrNotFound):
				writeNotFound(w, "USER_NOT_FOUND", "user not found")
			default:
				writeInternal(w, "INTERNAL_ERROR", "failed to update visibility")
			}
			return
		}

		httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
	}
}

// Get serves another user's public profile. Email and review state are
// owner-only fields and stay hidden here.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	user, err := h.service.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		switch {
		case errors.Is(err, userssvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		case errors.Is(err, userssvc.ErrNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load user")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, toUserResponse(user, false))
}

func toUserResponse(user userssvc.User, owner bool) dto.UserResponse {
	resp := dto.UserResponse{
		ID:                user.ID,
		ProfileName:       user.ProfileName,
		Country:           user.Country,
		Description:       user.Description,
		Languages:         user.Languages,
		PossessedSkills:   user.PossessedSkills,
		SkillsToLearn:     user.SkillsToLearn,
		Approved:          user.Approved,
		Active:            user.Active,
		ProfilePictureURL: user.ProfilePictureURL,
		RatingCount:       user.RatingCount,
		RatingMean:        user.RatingMean,
		CreatedAt:         user.CreatedAt,
	}
	if owner {
		resp.Email = user.Email
		resp.ModerationStatus = user.ModerationStatus
	}
	return resp
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeForbidden(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusForbidden, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeConflict(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusConflict, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func parseInt64OrDefault(raw string, fallback int64) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fallback
	}
	return value
}
