package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"signup/internal/registration/models"
	id "signup/pkg/domain"
	"signup/pkg/platform/sentinel"
)

const msgAlreadyRegistered = "User already registered"

// StoredAccount is what the in-memory service keeps per account.
type StoredAccount struct {
	UserID         id.UserID
	Email          string
	Name           string
	RedirectTarget string
}

// MemoryService is an in-process identity service for development and tests.
// Emails are unique case-insensitively.
type MemoryService struct {
	mu          sync.RWMutex
	byEmail     map[string]StoredAccount
	withholdIDs bool
}

type MemoryOption func(*MemoryService)

// WithheldUserIDs makes CreateAccount answer without a user id, as the hosted
// service does while email confirmation is pending.
func WithheldUserIDs() MemoryOption {
	return func(m *MemoryService) {
		m.withholdIDs = true
	}
}

func NewMemoryService(opts ...MemoryOption) *MemoryService {
	m := &MemoryService{byEmail: make(map[string]StoredAccount)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryService) CreateAccount(_ context.Context, req models.CreateAccountRequest) (*models.Account, error) {
	key := strings.ToLower(req.Email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[key]; exists {
		return nil, models.NewAuthError(models.AuthDuplicate, msgAlreadyRegistered, nil)
	}

	stored := StoredAccount{
		UserID:         id.NewUserID(),
		Email:          req.Email,
		Name:           req.Metadata.Name,
		RedirectTarget: req.RedirectTarget,
	}
	m.byEmail[key] = stored

	account := &models.Account{Email: req.Email}
	if !m.withholdIDs {
		account.UserID = stored.UserID
	}
	return account, nil
}

func (m *MemoryService) DeleteAccount(_ context.Context, userID id.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, stored := range m.byEmail {
		if stored.UserID == userID {
			delete(m.byEmail, key)
			return nil
		}
	}
	return fmt.Errorf("delete account %s: %w", userID, sentinel.ErrNotFound)
}

// Find returns the account registered under email.
func (m *MemoryService) Find(email string) (StoredAccount, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.byEmail[strings.ToLower(email)]
	return stored, ok
}

func (m *MemoryService) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byEmail)
}
