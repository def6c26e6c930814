package accounts

import (
	"context"
	"time"
)

// RepositoryInterface defines the contract for account storage.
type RepositoryInterface interface {
	CreateUser(ctx context.Context, u User, passwordHash string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, string, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// TokenIssuer signs access tokens. *auth.Signer implements it.
type TokenIssuer interface {
	Issue(userID, email, role string) (string, time.Time, error)
}

// ServiceInterface defines the account operations exposed over HTTP.
type ServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	CreateAccount(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	GetUser(ctx context.Context, id string) (*User, error)
}

// MetricsRecorder records account operations.
type MetricsRecorder interface {
	RecordAccountOperation(ctx context.Context, operation string)
}

var (
	_ RepositoryInterface = (*Repository)(nil)
	_ ServiceInterface    = (*Service)(nil)
)
