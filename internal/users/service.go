package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/campushub/auth-service/internal/crypto"
	"github.com/campushub/auth-service/internal/models"
	"github.com/campushub/auth-service/pkg/logger"
)

// Service encapsulates user-related business logic
type Service struct {
	repo           Repository
	bcryptCost     int
	defaultPicture string
}

func NewService(r Repository, bcryptCost int, defaultPicture string) *Service {
	return &Service{repo: r, bcryptCost: bcryptCost, defaultPicture: defaultPicture}
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// UpsertFromIdentity creates the user on first federated login and refreshes
// google id, username and picture on later ones. Username and picture keep
// their stored values when the assertion omits them.
func (s *Service) UpsertFromIdentity(ctx context.Context, id *models.FederatedIdentity) (*models.User, error) {
	email := NormalizeEmail(id.Email)
	if email == "" {
		return nil, errors.New("users: identity has no email")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, id)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	u, err := s.newFederatedUser(email, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if !errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		// a concurrent login created the account first
		logger.Debugf("federated create lost insert race; updating existing user")
		existing, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return s.refresh(ctx, existing, id)
	}
	logger.Infof("created federated user user_id=%d", u.ID)
	return u, nil
}

func (s *Service) refresh(ctx context.Context, existing *models.User, id *models.FederatedIdentity) (*models.User, error) {
	upd := models.FederatedUpdate{
		GoogleID:       id.Subject,
		Username:       existing.Username,
		ProfilePicture: existing.ProfilePicture,
	}
	if id.Name != "" {
		upd.Username = id.Name
	}
	if id.Picture != "" {
		upd.ProfilePicture = id.Picture
	}
	return s.repo.UpdateFederated(ctx, existing.Email, upd)
}

func (s *Service) newFederatedUser(email string, id *models.FederatedIdentity) (*models.User, error) {
	hash, err := crypto.UnusablePasswordHash(s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	username := id.Name
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	picture := id.Picture
	if picture == "" {
		picture = s.defaultPicture + url.QueryEscape(username)
	}
	return &models.User{
		Email:          email,
		Username:       username,
		PasswordHash:   hash,
		Role:           models.RoleStudent,
		Status:         models.StatusActive,
		Active:         true,
		ProfilePicture: picture,
		GoogleID:       id.Subject,
	}, nil
}

// Register creates a credential account. Username defaults to the local part
// of the email and role to student.
func (s *Service) Register(ctx context.Context, email, password, username string, role models.Role) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.New("users: email and password are required")
	}
	switch role {
	case "":
		role = models.RoleStudent
	case models.RoleStudent, models.RoleModerator, models.RoleAdmin:
	default:
		return nil, fmt.Errorf("users: unknown role %q", role)
	}
	hash, err := crypto.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	u := &models.User{
		Email:          email,
		Username:       username,
		PasswordHash:   hash,
		Role:           role,
		Status:         models.StatusActive,
		Active:         true,
		ProfilePicture: s.defaultPicture + url.QueryEscape(username),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	logger.Infof("registered user user_id=%d role=%s", u.ID, u.Role)
	return u, nil
}

// SetStatus changes the moderation state of the user with email.
func (s *Service) SetStatus(ctx context.Context, email string, status models.Status, active bool) (*models.User, error) {
	switch status {
	case models.StatusActive, models.StatusSuspended, models.StatusBanned:
	default:
		return nil, fmt.Errorf("users: unknown status %q", status)
	}
	return s.repo.UpdateStatus(ctx, NormalizeEmail(email), status, active)
}
