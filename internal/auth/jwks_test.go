package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func jwkFor(kid string, pub *rsa.PublicKey) jwkKey {
	return jwkKey{
		Kty: "RSA",
		Kid: kid,
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func newJWKSServer(t *testing.T, keys func() []jwkKey) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		json.NewEncoder(w).Encode(jwksJSON{Keys: keys()})
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestJWKS_VerifiesTokens(t *testing.T) {
	priv, pub := generateTestKeyPair(t)
	srv, _ := newJWKSServer(t, func() []jwkKey {
		return []jwkKey{{Kty: "EC", Kid: "ignored"}, jwkFor("test-key-id", pub)}
	})

	jwks, err := NewJWKS(srv.URL, time.Hour, quietLogger())
	if err != nil {
		t.Fatalf("NewJWKS: %v", err)
	}
	defer jwks.Close()

	verifier := NewVerifier(Config{Issuer: testIssuer}, jwks)
	pr, err := verifier.ParseAndVerifyToken(signToken(t, priv, "test-key-id", validClaims()))
	if err != nil {
		t.Fatalf("expected token to verify, got %v", err)
	}
	if pr.UserID == "" {
		t.Error("expected principal user id")
	}
}

func TestJWKS_RefreshesOnUnknownKid(t *testing.T) {
	_, first := generateTestKeyPair(t)
	_, rotated := generateTestKeyPair(t)

	var current atomic.Value
	current.Store([]jwkKey{jwkFor("old", first)})
	srv, hits := newJWKSServer(t, func() []jwkKey { return current.Load().([]jwkKey) })

	jwks, err := NewJWKS(srv.URL, time.Hour, quietLogger())
	if err != nil {
		t.Fatalf("NewJWKS: %v", err)
	}
	defer jwks.Close()

	current.Store([]jwkKey{jwkFor("new", rotated)})
	key, err := jwks.Key("new")
	if err != nil {
		t.Fatalf("expected rotated key, got %v", err)
	}
	if key.N.Cmp(rotated.N) != 0 {
		t.Error("returned key does not match rotated key")
	}
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("expected 2 fetches, got %d", got)
	}

	if _, err := jwks.Key("missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestNewJWKS_FailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewJWKS(srv.URL, time.Hour, quietLogger()); err == nil {
		t.Fatal("expected error for unavailable JWKS endpoint")
	}
}
