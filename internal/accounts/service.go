package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/messaging"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything longer
	maxPhoneLen    = 20
)

type Service struct {
	repo       RepositoryInterface
	issuer     TokenIssuer
	publisher  messaging.PublisherInterface
	metrics    MetricsRecorder
	log        logrus.FieldLogger
	bcryptCost int
	// dummyHash keeps unknown-email logins as slow as wrong-password ones.
	dummyHash []byte
}

// NewService builds the account service. issuer may be nil when tokens come
// from an external identity provider; Login then returns ErrLoginDisabled.
func NewService(repo RepositoryInterface, issuer TokenIssuer, publisher messaging.PublisherInterface,
	metrics MetricsRecorder, logger logrus.FieldLogger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	return &Service{
		repo:       repo,
		issuer:     issuer,
		publisher:  publisher,
		metrics:    metrics,
		log:        logger,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
	}
}

func normalize(req *RegisterRequest) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
}

func validate(req RegisterRequest, allowAdmin bool) *ValidationError {
	fields := map[string]string{}

	if req.Email == "" {
		fields["email"] = "This field is required."
	} else if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		fields["email"] = "Enter a valid email address."
	}

	switch n := len(req.Password); {
	case n == 0:
		fields["password"] = "This field is required."
	case n < minPasswordLen:
		fields["password"] = fmt.Sprintf("Ensure this field has at least %d characters.", minPasswordLen)
	case n > maxPasswordLen:
		fields["password"] = fmt.Sprintf("Ensure this field has no more than %d characters.", maxPasswordLen)
	}

	if len(req.Phone) > maxPhoneLen {
		fields["phone"] = fmt.Sprintf("Ensure this field has no more than %d characters.", maxPhoneLen)
	}

	switch {
	case !auth.ValidRole(req.Role):
		fields["role"] = fmt.Sprintf("%q is not a valid choice.", req.Role)
	case req.Role == auth.RoleAdmin && !allowAdmin:
		fields["role"] = "Administrator accounts cannot be self-registered."
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Register creates a self-service account. The role defaults to FIELD_WORKER
// and may not be ADMIN.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	return s.create(ctx, req, false, "register")
}

// CreateAccount is the administrator path; any role is accepted.
func (s *Service) CreateAccount(ctx context.Context, req RegisterRequest) (*User, error) {
	return s.create(ctx, req, true, "create")
}

func (s *Service) create(ctx context.Context, req RegisterRequest, allowAdmin bool, op string) (*User, error) {
	normalize(&req)
	if req.Role == "" {
		req.Role = auth.RoleFieldWorker
	}
	if verr := validate(req, allowAdmin); verr != nil {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := s.repo.CreateUser(ctx, User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      req.Role,
	}, string(hash))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, &ValidationError{Fields: map[string]string{"email": "user with this email already exists."}}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordAccountOperation(ctx, op)
	}
	s.publishRegistered(ctx, u)
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("account created")
	return u, nil
}

func (s *Service) publishRegistered(ctx context.Context, u *User) {
	if s.publisher == nil {
		return
	}
	event := messaging.UserRegisteredEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventUserRegistered),
		Data: messaging.UserRegisteredData{
			UserID:    u.ID,
			Email:     u.Email,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventUserRegistered, event); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("failed to publish user.registered event")
	}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	if s.issuer == nil {
		return nil, ErrLoginDisabled
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	u, hash, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.issuer.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordAccountOperation(ctx, "login")
	}
	return &TokenResponse{Access: token, TokenType: "Bearer", ExpiresAt: exp, User: *u}, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}
