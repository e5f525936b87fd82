package users

import (
	"context"
	"sync"
	"time"

	"github.com/campushub/auth-service/internal/models"
)

// MemoryRepository is an in-process Repository used for local development
// (USER_STORE=memory) and tests. Returned users are copies.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*models.User
	byEmail map[string]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[int64]*models.User),
		byEmail: make(map[string]int64),
	}
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := *m.byID[id]
	return &u, nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[u.Email]; exists {
		return ErrEmailTaken
	}
	m.nextID++
	u.ID = m.nextID
	if u.RegistrationDate.IsZero() {
		u.RegistrationDate = time.Now().UTC()
	}
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryRepository) UpdateFederated(ctx context.Context, email string, upd models.FederatedUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.byID[id]
	u.GoogleID = upd.GoogleID
	u.Username = upd.Username
	u.ProfilePicture = upd.ProfilePicture
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) UpdateStatus(ctx context.Context, email string, status models.Status, active bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.byID[id]
	u.Status = status
	u.Active = active
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

// Len returns the number of stored users.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// SetStatus changes moderation fields of a stored user.
func (m *MemoryRepository) SetStatus(id int64, status models.Status, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	u.Active = active
	return nil
}
