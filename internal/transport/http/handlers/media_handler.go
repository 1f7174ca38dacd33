package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/2Clight/Skill-Swap/internal/services/auth"
	mediasvc "github.com/2Clight/Skill-Swap/internal/services/media"
	"github.com/2Clight/Skill-Swap/internal/transport/http/dto"
	httperrors "github.com/2Clight/Skill-Swap/internal/transport/http/errors"
)

const maxUploadMemory = 10 << 20

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// Upload accepts a multipart form with a single "file" part and stores
// it under the kind the route selects.
func (h *MediaHandler) Upload(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
			return
		}
		if h.service == nil {
			writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
			return
		}

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeBadRequest(w, "INVALID_REQUEST", "invalid multipart form")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeBadRequest(w, "INVALID_REQUEST", "file part is required")
			return
		}
		defer file.Close()

		upload, err := h.service.Upload(
			r.Context(),
			kind,
			identity.UserID,
			header.Filename,
			header.Header.Get("Content-Type"),
			file,
			header.Size,
		)
		if err != nil {
			switch {
			case errors.Is(err, mediasvc.ErrValidation):
				writeBadRequest(w, "VALIDATION_ERROR", "invalid upload")
			default:
				writeInternal(w, "INTERNAL_ERROR", "failed to store upload")
			}
			return
		}

		httperrors.Write(w, http.StatusCreated, dto.UploadResponse{
			ObjectKey: upload.ObjectKey,
			URL:       upload.URL,
		})
	}
}

// ViewURL re-signs a stored object key. Moderators use it to open
// certificates from the review queue after the upload link expired.
func (h *MediaHandler) ViewURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	url, err := h.service.ViewURL(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		switch {
		case errors.Is(err, mediasvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "object key is required")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to sign object url")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ViewURLResponse{URL: url})
}
