package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/webhook"
)

// deliveryEntry represents a registered delivery with expiration
type deliveryEntry struct {
	outcome   webhook.DeliveryOutcome
	expiresAt time.Time
}

// InMemoryDeliveryStore implements webhook.DeliveryStore using an in-memory
// map. This is suitable for single-instance deployments and testing.
type InMemoryDeliveryStore struct {
	mu        sync.RWMutex
	entries   map[string]deliveryEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryDeliveryStore creates a new in-memory delivery store.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryDeliveryStore() *InMemoryDeliveryStore {
	store := &InMemoryDeliveryStore{
		entries:  make(map[string]deliveryEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

func deliveryKey(tenantID uuid.UUID, deliveryID string) string {
	return tenantID.String() + ":" + deliveryID
}

// Register atomically records a delivery as admitted with a TTL.
// Returns true if the delivery is new, false if it was already registered.
func (s *InMemoryDeliveryStore) Register(ctx context.Context, tenantID uuid.UUID, deliveryID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := deliveryKey(tenantID, deliveryID)
	if e, exists := s.entries[key]; exists {
		if time.Now().Before(e.expiresAt) {
			return false, nil // Already registered
		}
		// Entry exists but expired, will be overwritten
	}

	s.entries[key] = deliveryEntry{
		outcome:   webhook.DeliveryOutcomeAdmitted,
		expiresAt: time.Now().Add(ttl),
	}
	return true, nil
}

// RecordOutcome updates the processing outcome of a registered delivery.
// Unknown or expired deliveries are ignored.
func (s *InMemoryDeliveryStore) RecordOutcome(ctx context.Context, tenantID uuid.UUID, deliveryID string, outcome webhook.DeliveryOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := deliveryKey(tenantID, deliveryID)
	e, exists := s.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil
	}

	e.outcome = outcome
	s.entries[key] = e
	return nil
}

// Unregister removes a delivery record, reopening the dedup slot
func (s *InMemoryDeliveryStore) Unregister(ctx context.Context, tenantID uuid.UUID, deliveryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, deliveryKey(tenantID, deliveryID))
	return nil
}

// Outcome returns the recorded outcome of a delivery (for testing/monitoring)
func (s *InMemoryDeliveryStore) Outcome(tenantID uuid.UUID, deliveryID string) (webhook.DeliveryOutcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[deliveryKey(tenantID, deliveryID)]
	if !exists || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.outcome, true
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (s *InMemoryDeliveryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryDeliveryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryDeliveryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryDeliveryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryDeliveryStore implements DeliveryStore
var _ webhook.DeliveryStore = (*InMemoryDeliveryStore)(nil)
