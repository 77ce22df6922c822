package shopify

import (
	"errors"
	"time"
)

// Config holds Admin API client tuning. Credentials are per shop and come
// from the tenant, not from here.
type Config struct {
	APIVersion     string
	PageSize       int
	BucketCapacity int
	RefillPerSec   float64
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	RequestTimeout time.Duration

	// BaseURL overrides the https://{shop-domain} request base. Used in tests
	// to point the client at a local server.
	BaseURL string
}

// DefaultConfig returns tuning aligned with the Admin API's published limits
// (bucket of 40 requests, 2 requests per second sustained).
func DefaultConfig() Config {
	return Config{
		APIVersion:     "2024-01",
		PageSize:       250,
		BucketCapacity: 40,
		RefillPerSec:   2,
		MaxAttempts:    5,
		BackoffBase:    500 * time.Millisecond,
		BackoffCap:     30 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.APIVersion == "" {
		return errors.New("shopify: api version is required")
	}
	if c.PageSize < 1 || c.PageSize > 250 {
		return errors.New("shopify: page size must be between 1 and 250")
	}
	if c.BucketCapacity < 1 {
		return errors.New("shopify: bucket capacity must be positive")
	}
	if c.RefillPerSec <= 0 {
		return errors.New("shopify: refill rate must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("shopify: max attempts must be at least 1")
	}
	return nil
}
