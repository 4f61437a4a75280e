package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "signup/pkg/domain"
	audit "signup/pkg/platform/audit"
	"signup/pkg/platform/audit/store/memory"
)

// gatedStore blocks Append until release is closed, so tests can hold the
// worker busy and fill the buffer deterministically.
type gatedStore struct {
	*memory.InMemoryStore
	started chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		InMemoryStore: memory.NewInMemoryStore(),
		started:       make(chan struct{}, 16),
		release:       make(chan struct{}),
	}
}

func (s *gatedStore) Append(ctx context.Context, event audit.Event) error {
	s.started <- struct{}{}
	<-s.release
	return s.InMemoryStore.Append(ctx, event)
}

type failingStore struct{ err error }

func (s failingStore) Append(context.Context, audit.Event) error { return s.err }

// orphanTrail is what the registration service emits when the identity
// account exists but the profile row could not be written and the rollback
// failed too.
func orphanTrail(userID id.UserID) []audit.Event {
	return []audit.Event{
		{
			UserID:    userID,
			Action:    string(audit.EventProfileOrphaned),
			Decision:  "orphaned",
			Reason:    "permission denied for table profiles",
			Email:     "a***@example.com",
			RequestID: "req-42",
			ClientIP:  "203.0.113.7",
			Device:    "Firefox on Linux",
		},
		{
			UserID:    userID,
			Action:    string(audit.EventAccountRollbackErr),
			Decision:  "kept",
			Reason:    "identity service unavailable",
			Email:     "a***@example.com",
			RequestID: "req-42",
		},
	}
}

func TestPublisher_OrphanTrail(t *testing.T) {
	modes := map[string][]Option{
		"sync":  nil,
		"async": {WithAsyncBuffer(8)},
	}
	for name, opts := range modes {
		t.Run(name, func(t *testing.T) {
			store := memory.NewInMemoryStore()
			pub := NewPublisher(store, opts...)
			userID := id.NewUserID()

			for _, event := range orphanTrail(userID) {
				require.NoError(t, pub.Emit(context.Background(), event))
			}
			pub.Close()

			events, err := store.ListByUser(context.Background(), userID)
			require.NoError(t, err)
			require.Len(t, events, 2)

			orphaned := events[0]
			assert.Equal(t, string(audit.EventProfileOrphaned), orphaned.Action)
			assert.Equal(t, audit.CategoryOperations, orphaned.Category)
			assert.Equal(t, "a***@example.com", orphaned.Email)
			assert.Equal(t, "Firefox on Linux", orphaned.Device)
			assert.Equal(t, "203.0.113.7", orphaned.ClientIP)
			assert.Equal(t, "req-42", orphaned.RequestID)
			assert.False(t, orphaned.Timestamp.IsZero())

			assert.Equal(t, string(audit.EventAccountRollbackErr), events[1].Action)
			assert.Equal(t, audit.CategoryOperations, events[1].Category)
		})
	}
}

func TestPublisher_CategoriesByOutcome(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	outcomes := []struct {
		event audit.AuditEvent
		want  audit.EventCategory
	}{
		{audit.EventRegistrationSucceeded, audit.CategoryCompliance},
		{audit.EventAccountRolledBack, audit.CategoryCompliance},
		{audit.EventRegistrationFailed, audit.CategorySecurity},
		{audit.EventProfileOrphaned, audit.CategoryOperations},
	}
	for _, o := range outcomes {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(o.event)}))
	}
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Action:   string(audit.EventRegistrationFailed),
		Category: audit.CategoryOperations,
	}))

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, len(outcomes)+1)
	for i, o := range outcomes {
		assert.Equal(t, o.want, events[i].Category, o.event)
	}
	assert.Equal(t, audit.CategoryOperations, events[len(outcomes)].Category, "explicit category is kept")
}

func TestPublisher_Timestamps(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()
	userID := id.NewUserID()
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: userID, Action: string(audit.EventRegistrationSucceeded)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: userID, Action: string(audit.EventRegistrationFailed), Timestamp: fixed}))

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.Equal(t, fixed, events[1].Timestamp)
}

func TestPublisher_BufferFullDropsEvent(t *testing.T) {
	store := newGatedStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	userID := id.NewUserID()
	event := audit.Event{UserID: userID, Action: string(audit.EventRegistrationSucceeded)}

	require.NoError(t, pub.Emit(context.Background(), event))
	<-store.started // worker holds the first event
	require.NoError(t, pub.Emit(context.Background(), event))

	err := pub.Emit(context.Background(), event)
	assert.ErrorIs(t, err, ErrBufferFull)

	close(store.release)
	pub.Close()

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestPublisher_CloseDrainsBuffer(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(32))
	userID := id.NewUserID()

	for range 20 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: userID, Action: string(audit.EventRegistrationFailed)}))
	}
	pub.Close()

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 20)
}

func TestPublisher_SyncStoreErrorIsReturned(t *testing.T) {
	boom := errors.New("broker unreachable")
	pub := NewPublisher(failingStore{err: boom})
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventProfileOrphaned)})
	assert.ErrorIs(t, err, boom)

	_, err = pub.List(context.Background(), id.NewUserID())
	assert.Error(t, err, "store without listing support")
}

func TestPublisher_EmitAfterCloseFails(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(4))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventRegistrationSucceeded)})
	assert.Error(t, err)
}
