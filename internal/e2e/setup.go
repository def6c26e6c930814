//go:build integration

package e2e

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"net/http/httptest"
	"testing"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/accounts"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/blob"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/chatbot"
	httpserver "github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/http"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/logging"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/patient"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/screening"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/testutil"
)

const maxUpload = 1 << 20

// fixedClassifier stands in for the TFLite model with a settable score.
type fixedClassifier struct {
	score float32
	err   error
}

func (f *fixedClassifier) Classify(context.Context, []byte) (float32, error) {
	return f.score, f.err
}

// TestServer is a full HTTP stack over a real PostgreSQL database.
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	Store         *blob.Local
	Classifier    *fixedClassifier
	MockPublisher *testutil.MockPublisher
	PrivateKey    *rsa.PrivateKey
}

func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := logging.Discard()
	publisher := testutil.NewMockPublisher()
	classifier := &fixedClassifier{score: 0.9}

	store, err := blob.NewLocal(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}
	verifier, privateKey := testutil.CreateTestVerifier(t)

	screeningService := screening.NewService(screening.NewRepository(db), classifier, store, publisher, nil, logger,
		screening.Options{MaxUploadBytes: maxUpload})

	router := httpserver.SetupRouter(httpserver.Deps{
		ServiceName: "screening-service",
		Verifier:    verifier,
		Permissions: perms,
		Logger:      logger,
		Accounts:    accounts.NewHandler(accounts.NewService(accounts.NewRepository(db), nil, publisher, nil, logger, 4), logger),
		Patients:    patient.NewHandler(patient.NewService(patient.NewRepository(db), publisher, nil, logger), logger),
		Screenings:  screening.NewHandler(screeningService, maxUpload, logger),
		Chatbot:     chatbot.NewHandler(chatbot.NewService(chatbot.NewRepository(db), nil, nil, nil, nil, logger), logger),
		Media:       screening.NewMediaHandler(screeningService, store, logger),
		ModelLoaded: func() bool { return true },
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:        server,
		DB:            db,
		Store:         store,
		Classifier:    classifier,
		MockPublisher: publisher,
		PrivateKey:    privateKey,
	}
}

// NewUser inserts an account with role and returns a client authenticated as it.
func (ts *TestServer) NewUser(t *testing.T, email, role string) (string, *testutil.HTTPTestClient) {
	t.Helper()
	id := testutil.CreateTestUser(t, ts.DB, email, role)
	token := testutil.GenerateTestJWT(t, ts.PrivateKey, id, email, []string{role})
	return id, testutil.NewHTTPTestClient(ts.Server.URL, token)
}
