package auth

import "time"

// Config holds auth configuration.
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string
	TokenTTL time.Duration
}

// Role names as they appear in realm_access.roles and permissions.yml.
const (
	RoleAdmin       = "ADMIN"
	RoleClinician   = "CLINICIAN"
	RoleFieldWorker = "FIELD_WORKER"
)

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleClinician, RoleFieldWorker:
		return true
	}
	return false
}
