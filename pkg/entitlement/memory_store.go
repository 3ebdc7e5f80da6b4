package entitlement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with in-memory maps. It is used in tests and
// as a reference implementation of the Store contract; the single mutex gives
// it the same single-row atomicity the Postgres store gets from conditional
// updates.
type MemoryStore struct {
	mu            sync.RWMutex
	subscriptions map[uuid.UUID]*Subscription
	usage         map[uuid.UUID]*Usage
}

// NewMemoryStore creates an empty in-memory entitlement store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscriptions: make(map[uuid.UUID]*Subscription),
		usage:         make(map[uuid.UUID]*Usage),
	}
}

func (m *MemoryStore) GetSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, exists := m.subscriptions[userID]
	if !exists {
		return nil, ErrSubscriptionNotFound
	}

	subCopy := *sub
	return &subCopy, nil
}

func (m *MemoryStore) UpsertSubscription(ctx context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	subCopy := *sub
	m.subscriptions[sub.UserID] = &subCopy
	return nil
}

func (m *MemoryStore) DeleteSubscription(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subscriptions, userID)
	return nil
}

func (m *MemoryStore) GetUsage(ctx context.Context, userID uuid.UUID) (*Usage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usage, exists := m.usage[userID]
	if !exists {
		return nil, ErrUsageNotFound
	}

	usageCopy := *usage
	return &usageCopy, nil
}

func (m *MemoryStore) UpsertUsage(ctx context.Context, usage *Usage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	usageCopy := *usage
	m.usage[usage.UserID] = &usageCopy
	return nil
}

func (m *MemoryStore) DeleteUsage(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.usage, userID)
	return nil
}

// IncrementUsage consumes one action while holding the write lock, so the
// used < limit check and the increment are a single atomic step.
func (m *MemoryStore) IncrementUsage(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	usage, exists := m.usage[userID]
	if !exists {
		return false, nil
	}
	if usage.Used >= usage.Limit || !now.Before(usage.PeriodEnd) {
		return false, nil
	}

	usage.Used++
	usage.UpdatedAt = now
	return true, nil
}

func (m *MemoryStore) ListExpiredActive(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []uuid.UUID
	for userID, sub := range m.subscriptions {
		if sub.Status != StatusActive {
			continue
		}
		if sub.PeriodEnd.Before(cutoff) && sub.UpdatedAt.Before(cutoff) {
			expired = append(expired, userID)
		}
	}
	return expired, nil
}
