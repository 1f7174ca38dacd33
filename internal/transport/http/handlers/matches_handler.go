package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/2Clight/Skill-Swap/internal/services/auth"
	matchsvc "github.com/2Clight/Skill-Swap/internal/services/match"
	"github.com/2Clight/Skill-Swap/internal/transport/http/dto"
	httperrors "github.com/2Clight/Skill-Swap/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchsvc.Service
}

func NewMatchesHandler(service *matchsvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	candidates, err := h.service.FindCandidates(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, matchsvc.ErrNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		case errors.Is(err, matchsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid match request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to compute candidates")
		}
		return
	}

	items := make([]dto.MatchCandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, dto.MatchCandidateResponse{
			ID:                candidate.ID,
			ProfileName:       candidate.ProfileName,
			Country:           candidate.Country,
			Description:       candidate.Description,
			Languages:         candidate.Languages,
			PossessedSkills:   candidate.PossessedSkills,
			SkillsToLearn:     candidate.SkillsToLearn,
			ProfilePictureURL: candidate.ProfilePictureURL,
			RatingCount:       candidate.RatingCount,
			RatingMean:        candidate.RatingMean,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: items})
}
