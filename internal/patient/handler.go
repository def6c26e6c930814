package patient

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/httputil"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/pagination"
)

type Handler struct {
	service ServiceInterface
	log     logrus.FieldLogger
}

func NewHandler(service ServiceInterface, logger logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: logger}
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req CreatePatientRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	p, err := h.service.CreatePatient(r.Context(), principal.UserID, req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			httputil.RespondFieldErrors(w, verr.Fields)
			return
		}
		h.log.WithError(err).Error("create patient failed")
		httputil.RespondError(w, http.StatusInternalServerError, "creation_failed", "Failed to create patient")
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, p)
}

// ListPatients returns the caller's patients as a JSON array. page/limit
// query parameters switch on pagination; totals are reported in headers.
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	params := ListParams{
		Page:     pagination.ParseParams(r),
		Paginate: pagination.Requested(r),
		Search:   r.URL.Query().Get("search"),
	}

	patients, total, err := h.service.ListPatients(r.Context(), principal.UserID, params)
	if err != nil {
		h.log.WithError(err).Error("list patients failed")
		httputil.RespondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to list patients")
		return
	}

	var page *pagination.Params
	if params.Paginate {
		page = &params.Page
	}
	pagination.SetHeaders(w, total, page)
	httputil.RespondJSON(w, http.StatusOK, patients)
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	p, err := h.service.GetPatient(r.Context(), principal.UserID, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "not_found", "Patient not found")
			return
		}
		h.log.WithError(err).Error("get patient failed")
		httputil.RespondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to get patient")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, p)
}
