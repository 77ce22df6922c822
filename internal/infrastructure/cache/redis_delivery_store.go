package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/webhook"
)

// RedisDeliveryStore implements webhook.DeliveryStore using Redis.
// This is suitable for distributed deployments where multiple instances
// receive webhooks for the same shops.
type RedisDeliveryStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisDeliveryStore creates a new Redis-based delivery store
func NewRedisDeliveryStore(cfg RedisConfig) (*RedisDeliveryStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisDeliveryStore{
		client:    client,
		keyPrefix: "webhook:delivery:",
	}, nil
}

// NewRedisDeliveryStoreWithClient creates a store with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisDeliveryStoreWithClient(client *redis.Client, keyPrefix string) *RedisDeliveryStore {
	if keyPrefix == "" {
		keyPrefix = "webhook:delivery:"
	}
	return &RedisDeliveryStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// key scopes the delivery ID to its tenant: the same delivery ID from two
// different shops is two different deliveries.
func (s *RedisDeliveryStore) key(tenantID uuid.UUID, deliveryID string) string {
	return s.keyPrefix + tenantID.String() + ":" + deliveryID
}

// Register atomically records a delivery as admitted with a TTL.
// Returns true if the delivery is new, false if it was already registered.
// Uses SETNX (SET if Not eXists) for atomic operation.
func (s *RedisDeliveryStore) Register(ctx context.Context, tenantID uuid.UUID, deliveryID string, ttl time.Duration) (bool, error) {
	result, err := s.client.SetNX(ctx, s.key(tenantID, deliveryID), string(webhook.DeliveryOutcomeAdmitted), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to register delivery: %w", err)
	}
	return result, nil
}

// RecordOutcome updates the processing outcome of a registered delivery.
// The TTL is preserved so the dedup window is unchanged.
func (s *RedisDeliveryStore) RecordOutcome(ctx context.Context, tenantID uuid.UUID, deliveryID string, outcome webhook.DeliveryOutcome) error {
	err := s.client.Set(ctx, s.key(tenantID, deliveryID), string(outcome), redis.KeepTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to record delivery outcome: %w", err)
	}
	return nil
}

// Unregister removes a delivery record, reopening the dedup slot
func (s *RedisDeliveryStore) Unregister(ctx context.Context, tenantID uuid.UUID, deliveryID string) error {
	err := s.client.Del(ctx, s.key(tenantID, deliveryID)).Err()
	if err != nil {
		return fmt.Errorf("failed to unregister delivery: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisDeliveryStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisDeliveryStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisDeliveryStore implements DeliveryStore
var _ webhook.DeliveryStore = (*RedisDeliveryStore)(nil)
