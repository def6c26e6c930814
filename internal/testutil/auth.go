package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
)

// CreateTestVerifier returns a verifier accepting tokens from GenerateTestJWT
// and the private key to sign them with.
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)
	verifier := auth.NewVerifier(
		auth.Config{Issuer: TestIssuer},
		auth.StaticKeys{TestKeyID: publicKey},
	)
	return verifier, privateKey
}

// TestPermissions mirrors permissions.yml.
func TestPermissions() auth.Permissions {
	common := []string{"patient:create", "patient:view", "screening:create", "screening:view", "chat:use"}
	with := func(extra ...string) []string {
		return append(append([]string{}, common...), extra...)
	}
	return auth.Permissions{
		auth.RoleAdmin:       with("analytics:view", "account:create"),
		auth.RoleClinician:   with("analytics:view"),
		auth.RoleFieldWorker: with(),
	}
}
