package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campushub/auth-service/internal/crypto"
	"github.com/campushub/auth-service/internal/models"
	"github.com/campushub/auth-service/internal/oidc"
	"github.com/campushub/auth-service/internal/sessions"
	"github.com/campushub/auth-service/internal/tokens"
	"github.com/campushub/auth-service/internal/users"
	"github.com/campushub/auth-service/pkg/logger"
	"github.com/campushub/auth-service/pkg/metrics"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user inactive or suspended")
	ErrSessionIDRequired  = errors.New("session id required")
)

// IdentityVerifier validates a federated assertion and returns the identity it carries.
type IdentityVerifier interface {
	Verify(ctx context.Context, raw string) (*models.FederatedIdentity, error)
}

// Result is returned by every successful login path.
type Result struct {
	User  models.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// Service implements credential login, federated login, the cross-device
// session handoff and profile lookup.
type Service struct {
	users    *users.Service
	verifier IdentityVerifier
	issuer   *tokens.Issuer
	handoff  sessions.Store
}

func NewService(u *users.Service, v IdentityVerifier, i *tokens.Issuer, h sessions.Store) *Service {
	return &Service{users: u, verifier: v, issuer: i, handoff: h}
}

// LoginWithCredentials authenticates email/password. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials after equivalent bcrypt work.
func (s *Service) LoginWithCredentials(ctx context.Context, email, password string) (*Result, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			crypto.BurnCompare(password)
			metrics.AuthAttempts.WithLabelValues("password", "invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		metrics.AuthAttempts.WithLabelValues("password", "error").Inc()
		return nil, err
	}
	if err := crypto.CheckPassword(u.PasswordHash, password); err != nil {
		metrics.AuthAttempts.WithLabelValues("password", "invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}
	if !u.CanLogin() {
		metrics.AuthAttempts.WithLabelValues("password", "inactive").Inc()
		return nil, ErrUserInactive
	}
	res, err := s.issue(u)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("password", "error").Inc()
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return res, nil
}

// AuthenticateWithFederatedIdentity verifies raw with the identity provider,
// creates or refreshes the matching user, and issues an app token.
func (s *Service) AuthenticateWithFederatedIdentity(ctx context.Context, raw string) (*Result, error) {
	res, err := s.authenticateFederated(ctx, raw)
	switch {
	case err == nil:
		metrics.AuthAttempts.WithLabelValues("federated", "success").Inc()
	case errors.Is(err, oidc.ErrInvalidAssertion), errors.Is(err, oidc.ErrMissingEmail):
		metrics.AuthAttempts.WithLabelValues("federated", "invalid_assertion").Inc()
	case errors.Is(err, ErrUserInactive):
		metrics.AuthAttempts.WithLabelValues("federated", "inactive").Inc()
	default:
		metrics.AuthAttempts.WithLabelValues("federated", "error").Inc()
	}
	return res, err
}

func (s *Service) authenticateFederated(ctx context.Context, raw string) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty assertion", oidc.ErrInvalidAssertion)
	}
	id, err := s.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	u, err := s.users.UpsertFromIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.CanLogin() {
		return nil, ErrUserInactive
	}
	return s.issue(u)
}

// StoreTokenBySession parks raw under sessionID, replacing any earlier assertion.
func (s *Service) StoreTokenBySession(sessionID, raw string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionIDRequired
	}
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty assertion", oidc.ErrInvalidAssertion)
	}
	s.handoff.Put(sessionID, raw)
	logger.Debugf("handoff stored session_len=%d assertion_len=%d", len(sessionID), len(raw))
	return nil
}

// PollSession exchanges the assertion stored under sessionID for an app
// token. It returns (nil, nil) while nothing is stored. The stored assertion
// is removed before verification, so a failed exchange cannot be retried and
// concurrent polls never both succeed.
func (s *Service) PollSession(ctx context.Context, sessionID string) (*Result, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionIDRequired
	}
	raw, ok := s.handoff.Take(sessionID)
	if !ok {
		metrics.HandoffPolls.WithLabelValues("pending").Inc()
		return nil, nil
	}
	res, err := s.AuthenticateWithFederatedIdentity(ctx, raw)
	if err != nil {
		metrics.HandoffPolls.WithLabelValues("failed").Inc()
		logger.Warnf("handoff exchange failed: %v", err)
		return nil, err
	}
	metrics.HandoffPolls.WithLabelValues("exchanged").Inc()
	return res, nil
}

// GetUserByID returns the profile of an active user.
func (s *Service) GetUserByID(ctx context.Context, id int64) (*models.Profile, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.CanLogin() {
		return nil, ErrUserInactive
	}
	p := u.Profile()
	return &p, nil
}

func (s *Service) issue(u *models.User) (*Result, error) {
	tok, err := s.issuer.Issue(tokens.Payload{UserID: u.ID, Email: u.Email, Role: string(u.Role)})
	if err != nil {
		return nil, err
	}
	return &Result{User: u.Public(), Token: tok}, nil
}
