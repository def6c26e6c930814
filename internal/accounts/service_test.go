package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/messaging"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/testutil"
)

const testUserID = "0b8f3c1e-7a6d-4e2f-9c1b-5a4d3e2f1a0b"

// memRepository is an in-memory RepositoryInterface keyed by lower-case email.
type memRepository struct {
	users  map[string]User
	hashes map[string]string
	err    error
}

func newMemRepository() *memRepository {
	return &memRepository{users: map[string]User{}, hashes: map[string]string{}}
}

func (m *memRepository) CreateUser(ctx context.Context, u User, hash string) (*User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, exists := m.users[u.Email]; exists {
		return nil, ErrEmailTaken
	}
	u.ID = testUserID
	u.CreatedAt = time.Now()
	m.users[u.Email] = u
	m.hashes[u.Email] = hash
	return &u, nil
}

func (m *memRepository) GetByEmail(ctx context.Context, email string) (*User, string, error) {
	for k, u := range m.users {
		if k == email || u.Email == email {
			return &u, m.hashes[k], nil
		}
	}
	return nil, "", ErrUserNotFound
}

func (m *memRepository) GetByID(ctx context.Context, id string) (*User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

type countingMetrics struct{ ops []string }

func (c *countingMetrics) RecordAccountOperation(ctx context.Context, op string) { c.ops = append(c.ops, op) }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestService(t *testing.T) (*Service, *memRepository, *auth.Verifier, *testutil.MockPublisher) {
	t.Helper()
	key, _ := testutil.GenerateTestKeyPair(t)
	cfg := auth.Config{Issuer: testutil.TestIssuer, TokenTTL: time.Hour}
	signer := auth.NewSigner(key, cfg)
	verifier := auth.NewVerifier(cfg, signer.KeySource())

	repo := newMemRepository()
	pub := testutil.NewMockPublisher()
	svc := NewService(repo, signer, pub, &countingMetrics{}, quietLogger(), bcrypt.MinCost)
	return svc, repo, verifier, pub
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Email:     "  Worker@Clinic.ORG ",
		Password:  "s3cret-pass",
		FirstName: "Hana",
		LastName:  "Tesfaye",
		Phone:     "0911223344",
	}
}

func TestService_Register_DefaultsToFieldWorker(t *testing.T) {
	svc, repo, _, pub := newTestService(t)

	u, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.Equal(t, "worker@clinic.org", u.Email)
	assert.Equal(t, auth.RoleFieldWorker, u.Role)
	hash := repo.hashes["worker@clinic.org"]
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")))
	pub.AssertEventCount(t, messaging.EventUserRegistered, 1)
}

func TestService_Register_Validation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(r *RegisterRequest)
		field  string
	}{
		{"missing email", func(r *RegisterRequest) { r.Email = "" }, "email"},
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"short password", func(r *RegisterRequest) { r.Password = "short" }, "password"},
		{"long phone", func(r *RegisterRequest) { r.Phone = "012345678901234567890" }, "phone"},
		{"unknown role", func(r *RegisterRequest) { r.Role = "NURSE" }, "role"},
		{"admin self-registration", func(r *RegisterRequest) { r.Role = "admin" }, "role"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _, _ := newTestService(t)
			req := validRegistration()
			tc.mutate(&req)

			_, err := svc.Register(context.Background(), req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validRegistration())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "user with this email already exists.", verr.Fields["email"])
}

func TestService_CreateAccount_AllowsAdmin(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	req := validRegistration()
	req.Role = auth.RoleAdmin

	u, err := svc.CreateAccount(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, u.Role)
}

func TestService_Login_IssuesVerifiableToken(t *testing.T) {
	svc, _, verifier, _ := newTestService(t)
	req := validRegistration()
	req.Role = auth.RoleClinician
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "worker@clinic.org", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)

	principal, err := verifier.ParseAndVerifyToken(resp.Access)
	require.NoError(t, err)
	assert.Equal(t, testUserID, principal.UserID)
	assert.True(t, principal.HasRole(auth.RoleClinician))
}

func TestService_Login_Rejections(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	testCases := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Email: "worker@clinic.org", Password: "wrong-pass"}},
		{"unknown email", LoginRequest{Email: "nobody@clinic.org", Password: "s3cret-pass"}},
		{"empty", LoginRequest{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.req)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestService_Login_DisabledWithoutIssuer(t *testing.T) {
	svc := NewService(newMemRepository(), nil, nil, nil, quietLogger(), bcrypt.MinCost)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.org", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrLoginDisabled)
}

func TestService_Register_RepositoryFailure(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.err = errors.New("connection refused")

	_, err := svc.Register(context.Background(), validRegistration())
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestService_GetUser_NonUUID(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.GetUser(context.Background(), "external-subject")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
