package accounts

import (
	"context"
	"errors"
	"net/http"

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

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.service.Register)
}

// CreateAccount lets administrators create accounts of any role.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.service.CreateAccount)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, create func(ctx context.Context, req RegisterRequest) (*User, error)) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	u, err := create(r.Context(), req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			httputil.RespondFieldErrors(w, verr.Fields)
			return
		}
		h.log.WithError(err).Error("create account failed")
		httputil.RespondError(w, http.StatusInternalServerError, "creation_failed", "Failed to create account")
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	switch {
	case err == nil:
		httputil.RespondJSON(w, http.StatusOK, resp)
	case errors.Is(err, ErrInvalidCredentials):
		httputil.RespondError(w, http.StatusUnauthorized, "invalid_credentials", "No active account found with the given credentials")
	case errors.Is(err, ErrLoginDisabled):
		httputil.RespondError(w, http.StatusNotImplemented, "login_disabled", "Tokens are issued by the external identity provider")
	default:
		h.log.WithError(err).Error("login failed")
		httputil.RespondError(w, http.StatusInternalServerError, "login_failed", "Failed to log in")
	}
}

// CurrentUser describes the caller. Principals from an external identity
// provider have no local row and are described from their token.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	resp := CurrentUser{ID: principal.UserID, Email: principal.Email}
	if len(principal.Roles) > 0 {
		resp.Role = principal.Roles[0]
	}

	u, err := h.service.GetUser(r.Context(), principal.UserID)
	switch {
	case err == nil:
		resp.Email, resp.Role = u.Email, u.Role
	case errors.Is(err, ErrUserNotFound):
	default:
		h.log.WithError(err).Error("get current user failed")
		httputil.RespondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to load user")
		return
	}
	resp.UserType = resp.Role

	httputil.RespondJSON(w, http.StatusOK, resp)
}
