package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/2Clight/Skill-Swap/internal/services/auth"
	ratingssvc "github.com/2Clight/Skill-Swap/internal/services/ratings"
	"github.com/2Clight/Skill-Swap/internal/transport/http/dto"
	httperrors "github.com/2Clight/Skill-Swap/internal/transport/http/errors"
)

type RatingsHandler struct {
	service *ratingssvc.Service
}

func NewRatingsHandler(service *ratingssvc.Service) *RatingsHandler {
	return &RatingsHandler{service: service}
}

func (h *RatingsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "RATINGS_SERVICE_UNAVAILABLE", "ratings service is unavailable")
		return
	}

	var req dto.SubmitRatingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	rating, err := h.service.Submit(r.Context(), chi.URLParam(r, "userID"), identity.UserID, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, ratingssvc.ErrSelfRating):
			writeBadRequest(w, "SELF_RATING", "users cannot rate themselves")
		case errors.Is(err, ratingssvc.ErrScoreOutOfRange):
			writeBadRequest(w, "SCORE_OUT_OF_RANGE", "score is out of range")
		case errors.Is(err, ratingssvc.ErrNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "rated user not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to submit rating")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.RatingResponse{
		ID:            rating.ID,
		SubjectUserID: rating.SubjectUserID,
		RaterUserID:   rating.RaterUserID,
		Score:         rating.Score,
		CreatedAt:     rating.CreatedAt,
	})
}

func (h *RatingsHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "RATINGS_SERVICE_UNAVAILABLE", "ratings service is unavailable")
		return
	}

	agg, err := h.service.Aggregate(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		switch {
		case errors.Is(err, ratingssvc.ErrNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load rating aggregate")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.RatingAggregateResponse{
		SubjectUserID: agg.SubjectUserID,
		Count:         agg.Count,
		Sum:           agg.Sum,
		Mean:          agg.Mean,
	})
}
