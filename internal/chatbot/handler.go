package chatbot

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/httputil"
)

type Handler struct {
	service ServiceInterface
	log     logrus.FieldLogger
}

func NewHandler(service ServiceInterface, logger logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: logger}
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req AskRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	m, err := h.service.Ask(r.Context(), principal.UserID, req.Query)
	if err != nil {
		var uerr *UpstreamError
		switch {
		case errors.Is(err, ErrEmptyQuery):
			httputil.RespondFieldErrors(w, map[string]string{"query": "This field may not be blank."})
		case errors.Is(err, ErrQueryTooLong):
			httputil.RespondFieldErrors(w, map[string]string{"query": "Ensure this field has no more than 2000 characters."})
		case errors.Is(err, ErrUnavailable):
			httputil.RespondError(w, http.StatusServiceUnavailable, "chat_unavailable", "Chatbot is not configured")
		case errors.As(err, &uerr):
			h.log.WithError(err).WithField("service", uerr.Service).Error("chatbot upstream failed")
			httputil.RespondError(w, http.StatusBadGateway, "upstream_unavailable", "The assistant is temporarily unavailable")
		default:
			h.log.WithError(err).Error("chatbot ask failed")
			httputil.RespondError(w, http.StatusInternalServerError, "chat_failed", "Failed to answer the question")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, m)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	messages, err := h.service.List(r.Context(), principal.UserID)
	if err != nil {
		h.log.WithError(err).Error("list chat messages failed")
		httputil.RespondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to list messages")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	err := h.service.Delete(r.Context(), principal.UserID, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "not_found", "Message not found")
			return
		}
		h.log.WithError(err).Error("delete chat message failed")
		httputil.RespondError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
