// Package guard keeps two submissions for the same email from running at
// once, within one process or across instances sharing Redis.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"signup/pkg/platform/sentinel"
)

// DefaultTTL bounds how long a crashed holder can block an email.
const DefaultTTL = 30 * time.Second

type lease struct {
	token     string
	expiresAt time.Time
}

// MemoryGuard serialises submissions within a single process.
type MemoryGuard struct {
	ttl   time.Duration
	clock func() time.Time

	mu     sync.Mutex
	leases map[string]lease
}

type MemoryOption func(*MemoryGuard)

func WithClock(clock func() time.Time) MemoryOption {
	return func(g *MemoryGuard) {
		if clock != nil {
			g.clock = clock
		}
	}
}

func NewMemoryGuard(ttl time.Duration, opts ...MemoryOption) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	g := &MemoryGuard{ttl: ttl, clock: time.Now, leases: make(map[string]lease)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire takes the lease for key or returns sentinel.ErrInFlight. The
// release func only frees the lease it was issued for.
func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	if held, ok := g.leases[key]; ok && now.Before(held.expiresAt) {
		return nil, sentinel.ErrInFlight
	}
	token := uuid.NewString()
	g.leases[key] = lease{token: token, expiresAt: now.Add(g.ttl)}

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if held, ok := g.leases[key]; ok && held.token == token {
			delete(g.leases, key)
		}
	}, nil
}
