package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/accounts"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/chatbot"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/httputil"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/patient"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/screening"
)

// Metrics is everything the router's middleware records.
type Metrics interface {
	RequestMetrics
	auth.MetricsRecorder
}

// Deps carries the handlers and collaborators the router mounts.
type Deps struct {
	ServiceName    string
	Verifier       *auth.Verifier
	Permissions    auth.Permissions
	Logger         logrus.FieldLogger
	Metrics        Metrics
	AllowedOrigins []string

	Accounts   *accounts.Handler
	Patients   *patient.Handler
	Screenings *screening.Handler
	Chatbot    *chatbot.Handler

	// Media serves locally stored images under /media/. Nil for remote stores.
	Media       *screening.MediaHandler
	ModelLoaded func() bool
}

// SetupRouter initializes all routes for the application.
func SetupRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware(d.ServiceName))
	r.Use(RequestLogger(d.Logger, d.Metrics))

	authn := auth.Middleware(d.Verifier, d.Logger, d.Metrics)
	protect := func(permission string, h http.HandlerFunc) http.Handler {
		return authn(auth.RequirePermission(permission, d.Permissions, d.Logger, d.Metrics)(h))
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		loaded := d.ModelLoaded != nil && d.ModelLoaded()
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"status":       "ok",
			"service":      d.ServiceName,
			"model_loaded": loaded,
		})
	}).Methods("GET")

	// Accounts
	r.HandleFunc("/auth/register/", d.Accounts.Register).Methods("POST")
	r.HandleFunc("/auth/login/", d.Accounts.Login).Methods("POST")
	r.Handle("/auth/user/", authn(http.HandlerFunc(d.Accounts.CurrentUser))).Methods("GET")
	r.Handle("/auth/users/", protect("account:create", d.Accounts.CreateAccount)).Methods("POST")

	// Patients
	r.Handle("/patients/", protect("patient:create", d.Patients.CreatePatient)).Methods("POST")
	r.Handle("/patients/", protect("patient:view", d.Patients.ListPatients)).Methods("GET")
	r.Handle("/patients/{id}/", protect("patient:view", d.Patients.GetPatient)).Methods("GET")

	// Screenings
	r.Handle("/screenings/upload/", protect("screening:create", d.Screenings.Upload)).Methods("POST")
	r.Handle("/screenings/", protect("screening:view", d.Screenings.ListScreenings)).Methods("GET")
	r.Handle("/screenings/patient/{patientId}", protect("screening:view", d.Screenings.ListByPatient)).Methods("GET")
	r.Handle("/screenings/patient/{patientId}/", protect("screening:view", d.Screenings.ListByPatient)).Methods("GET")
	r.Handle("/screenings/{id}/", protect("screening:view", d.Screenings.GetScreening)).Methods("GET")

	// Analytics
	r.Handle("/analytics/dashboard/", protect("analytics:view", d.Screenings.Dashboard)).Methods("GET")

	// Chatbot
	r.Handle("/chatbot/messages/", protect("chat:use", d.Chatbot.List)).Methods("GET")
	r.Handle("/chatbot/messages/", protect("chat:use", d.Chatbot.Ask)).Methods("POST")
	r.Handle("/chatbot/messages/{id}/", protect("chat:use", d.Chatbot.Delete)).Methods("DELETE")

	if d.Media != nil {
		r.Handle("/media/{key:.+}", protect("screening:view", d.Media.Serve)).Methods("GET")
	}

	return CORSMiddleware(d.AllowedOrigins)(r)
}
