package profile

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"signup/internal/registration/models"
	"signup/pkg/platform/sentinel"
)

// InMemoryStore keeps rows per table. Ids and emails are unique per table,
// mirroring the hosted profiles schema.
type InMemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]models.ProfileRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tables: make(map[string][]models.ProfileRecord)}
}

func (s *InMemoryStore) Insert(_ context.Context, table string, record models.ProfileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tables[table] {
		if existing.ID == record.ID || strings.EqualFold(existing.Email, record.Email) {
			return models.NewProfileWriteError(record.ID,
				"duplicate key value violates unique constraint",
				fmt.Errorf("insert profile into %s: %w", table, sentinel.ErrConflict))
		}
	}
	s.tables[table] = append(s.tables[table], record)
	return nil
}

// Rows returns a copy of the rows in table, in insertion order.
func (s *InMemoryStore) Rows(table string) []models.ProfileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ProfileRecord(nil), s.tables[table]...)
}
