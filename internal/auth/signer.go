package auth

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SigningKeyID is the kid stamped on locally issued tokens.
const SigningKeyID = "screening-local"

// Signer issues RS256 access tokens for accounts stored in this service.
type Signer struct {
	key *rsa.PrivateKey
	cfg Config
	now func() time.Time
}

func NewSigner(key *rsa.PrivateKey, cfg Config) *Signer {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	return &Signer{key: key, cfg: cfg, now: time.Now}
}

// KeySource returns the verification keys matching this signer.
func (s *Signer) KeySource() StaticKeys {
	return StaticKeys{SigningKeyID: &s.key.PublicKey}
}

// Issue signs a token for the given account and returns it with its expiry.
func (s *Signer) Issue(userID, email, role string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.TokenTTL)
	claims := jwt.MapClaims{
		"sub":       userID,
		"email":     email,
		"iss":       s.cfg.Issuer,
		"iat":       now.Unix(),
		"exp":       exp.Unix(),
		"user_type": role,
		"realm_access": map[string]interface{}{
			"roles": []interface{}{role},
		},
	}
	if s.cfg.Audience != "" {
		claims["aud"] = s.cfg.Audience
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = SigningKeyID

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, exp, nil
}
