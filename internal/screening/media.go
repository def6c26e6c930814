package screening

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/blob"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/httputil"
)

// BlobServer writes a stored blob to the response.
type BlobServer interface {
	ServeBlob(w http.ResponseWriter, r *http.Request, key string) error
}

// MediaHandler serves screening images to the owner of the screening only.
type MediaHandler struct {
	service ServiceInterface
	files   BlobServer
	log     logrus.FieldLogger
}

func NewMediaHandler(service ServiceInterface, files BlobServer, logger logrus.FieldLogger) *MediaHandler {
	return &MediaHandler{service: service, files: files, log: logger}
}

// Serve expects the blob key in the "key" route variable. Keys that are not
// the image of one of the caller's screenings are 404s.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	key := mux.Vars(r)["key"]
	visible, err := h.service.ImageVisible(r.Context(), principal.UserID, key)
	if err != nil {
		h.log.WithError(err).Error("media lookup failed")
		httputil.RespondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to load image")
		return
	}
	if !visible {
		httputil.RespondError(w, http.StatusNotFound, "not_found", "Image not found")
		return
	}

	if err := h.files.ServeBlob(w, r, key); err != nil {
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidKey) {
			httputil.RespondError(w, http.StatusNotFound, "not_found", "Image not found")
			return
		}
		h.log.WithError(err).WithField("key", key).Error("serving image failed")
		httputil.RespondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to load image")
	}
}
