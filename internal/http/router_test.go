package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/accounts"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/blob"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/chatbot"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/patient"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/screening"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/testutil"
)

const (
	userID    = "8d0c7a4e-5f0f-4a55-9a57-2f3c1f0e9b11"
	patientID = "3f6a1b2c-9d4e-4f8a-8b7c-6d5e4f3a2b1c"
)

type testServer struct {
	handler http.Handler
	mock    sqlmock.Sqlmock
	store   *blob.Local
	tokens  map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store, err := blob.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	verifier, key := testutil.CreateTestVerifier(t)

	screenings := screening.NewService(screening.NewRepository(db), nil, store, nil, nil, logger,
		screening.Options{MaxUploadBytes: 1 << 20})

	handler := SetupRouter(Deps{
		ServiceName:    "screening-service",
		Verifier:       verifier,
		Permissions:    testutil.TestPermissions(),
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000"},
		Accounts:       accounts.NewHandler(accounts.NewService(accounts.NewRepository(db), nil, nil, nil, logger, bcrypt.MinCost), logger),
		Patients:       patient.NewHandler(patient.NewService(patient.NewRepository(db), nil, nil, logger), logger),
		Screenings:     screening.NewHandler(screenings, 1<<20, logger),
		Chatbot:        chatbot.NewHandler(chatbot.NewService(chatbot.NewRepository(db), nil, nil, nil, nil, logger), logger),
		Media:          screening.NewMediaHandler(screenings, store, logger),
		ModelLoaded:    func() bool { return false },
	})

	tokens := map[string]string{}
	for _, role := range []string{auth.RoleAdmin, auth.RoleClinician, auth.RoleFieldWorker} {
		tokens[role] = testutil.GenerateTestJWT(t, key, userID, "user@clinic.org", []string{role})
	}
	return &testServer{handler: handler, mock: mock, store: store, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[role])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"screening-service","model_loaded":false}`, rec.Body.String())
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/patients/", "/screenings/", "/analytics/dashboard/", "/chatbot/messages/", "/auth/user/"} {
		rec := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouter_PermissionMatrix(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/analytics/dashboard/", auth.RoleFieldWorker)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/users/", bytes.NewBufferString(`{}`))
	req.Header.Set("Authorization", "Bearer "+s.tokens[auth.RoleClinician])
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_ListByPatient_WithAndWithoutSlash(t *testing.T) {
	s := newTestServer(t)
	cols := []string{"id", "patient_id", "first_name", "last_name", "image", "result", "parasite_count", "confidence", "notes", "created_at"}

	for _, path := range []string{"/screenings/patient/" + patientID, "/screenings/patient/" + patientID + "/"} {
		s.mock.ExpectQuery(regexp.QuoteMeta("WHERE p.created_by = $1 AND s.patient_id = $2")).
			WithArgs(userID, patientID).
			WillReturnRows(sqlmock.NewRows(cols))

		rec := s.do(t, http.MethodGet, path, auth.RoleFieldWorker)

		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, "[]", rec.Body.String())
	}
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestRouter_UploadWithoutModel(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id, first_name, last_name FROM patients")).
		WithArgs(patientID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}).AddRow(patientID, "Abebe", "Kebede"))

	body, contentType := testutil.MultipartBody(t, map[string]string{"patient": patientID}, "image", "smear.png", testutil.SmearPNG(t))
	req := httptest.NewRequest(http.MethodPost, "/screenings/upload/", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.tokens[auth.RoleFieldWorker])
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "model_unavailable")
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/screenings/upload/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/patients/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Media(t *testing.T) {
	s := newTestServer(t)
	png := testutil.SmearPNG(t)
	require.NoError(t, s.store.Put(context.Background(), "screenings/a.png", bytes.NewReader(png), int64(len(png)), "image/png"))
	ownedQuery := regexp.QuoteMeta("WHERE s.image = $1 AND p.created_by = $2")

	rec := s.do(t, http.MethodGet, "/media/screenings/a.png", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.mock.ExpectQuery(ownedQuery).
		WithArgs("screenings/a.png", userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	rec = s.do(t, http.MethodGet, "/media/screenings/a.png", auth.RoleClinician)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png, rec.Body.Bytes())
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestRouter_Media_NotOwned(t *testing.T) {
	s := newTestServer(t)
	png := testutil.SmearPNG(t)
	require.NoError(t, s.store.Put(context.Background(), "screenings/a.png", bytes.NewReader(png), int64(len(png)), "image/png"))
	ownedQuery := regexp.QuoteMeta("WHERE s.image = $1 AND p.created_by = $2")

	s.mock.ExpectQuery(ownedQuery).
		WithArgs("screenings/a.png", userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	rec := s.do(t, http.MethodGet, "/media/screenings/a.png", auth.RoleClinician)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.mock.ExpectQuery(ownedQuery).
		WithArgs("screenings/", userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	rec = s.do(t, http.MethodGet, "/media/screenings/", auth.RoleClinician)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "a.png")
	assert.NoError(t, s.mock.ExpectationsWereMet())
}
