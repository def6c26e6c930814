package screening

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/httputil"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/inference"
)

// multipart bodies carry form fields and boundaries besides the image
const multipartOverhead = 1 << 20

type Handler struct {
	service        ServiceInterface
	log            logrus.FieldLogger
	maxUploadBytes int64
}

func NewHandler(service ServiceInterface, maxUploadBytes int64, logger logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: logger, maxUploadBytes: maxUploadBytes}
}

// Upload accepts multipart/form-data with "image", "patient" and optional "notes".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	in, ok := h.parseUpload(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Upload(r.Context(), principal.UserID, in)
	if err != nil {
		h.respondUploadError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (UploadInput, bool) {
	var in UploadInput

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondFieldErrors(w, map[string]string{"image": "Uploaded file is too large."})
			return in, false
		}
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Expected a multipart/form-data body")
		return in, false
	}
	defer r.MultipartForm.RemoveAll()

	in.PatientID = r.FormValue("patient")
	in.Notes = r.FormValue("notes")
	for _, f := range ReadOnlyFields {
		if _, sent := r.MultipartForm.Value[f]; sent {
			in.ReadOnly = append(in.ReadOnly, f)
		}
	}

	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, true
	case err != nil:
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Could not read uploaded image")
		return in, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Could not read uploaded image")
		return in, false
	}
	in.Image = data
	return in, true
}

func (h *Handler) respondUploadError(w http.ResponseWriter, err error) {
	var (
		verr *ValidationError
		derr *inference.DecodeError
		ierr *inference.InferenceError
		perr *PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		httputil.RespondFieldErrors(w, verr.Fields)
	case errors.As(err, &derr):
		httputil.RespondFieldErrors(w, map[string]string{
			"image": "Upload a valid image. The file you uploaded was either not an image or a corrupted image.",
		})
	case errors.Is(err, inference.ErrModelUnavailable):
		httputil.RespondError(w, http.StatusServiceUnavailable, "model_unavailable", "Screening model is not available")
	case errors.As(err, &ierr):
		h.log.WithError(err).WithField("reason", ierr.Reason).Error("inference failed")
		httputil.RespondError(w, http.StatusInternalServerError, "inference_failed", "Image analysis failed")
	case errors.As(err, &perr):
		h.log.WithError(err).WithField("op", perr.Op).Error("screening persistence failed")
		httputil.RespondError(w, http.StatusInternalServerError, "persistence_failed", "Failed to save screening")
	default:
		h.log.WithError(err).Error("screening upload failed")
		httputil.RespondError(w, http.StatusInternalServerError, "creation_failed", "Failed to create screening")
	}
}

func (h *Handler) ListScreenings(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	list, err := h.service.ListAll(r.Context(), principal.UserID)
	if err != nil {
		h.log.WithError(err).Error("list screenings failed")
		httputil.RespondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to list screenings")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, list)
}

func (h *Handler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	list, err := h.service.ListByPatient(r.Context(), principal.UserID, mux.Vars(r)["patientId"])
	if err != nil {
		h.log.WithError(err).Error("list patient screenings failed")
		httputil.RespondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to list screenings")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, list)
}

func (h *Handler) GetScreening(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	sc, err := h.service.Get(r.Context(), principal.UserID, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrScreeningNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "not_found", "Screening not found")
			return
		}
		h.log.WithError(err).Error("get screening failed")
		httputil.RespondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to get screening")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sc)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	stats, err := h.service.Dashboard(r.Context(), principal.UserID)
	if err != nil {
		h.log.WithError(err).Error("dashboard failed")
		httputil.RespondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to load dashboard")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, stats)
}
