package integration

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ---------------------------------------------------------------------------
// Storefront Errors
// ---------------------------------------------------------------------------

var (
	// ErrStoreNotConfigured indicates the tenant has no usable storefront credential
	ErrStoreNotConfigured = errors.New("integration: store not configured")
	// ErrRateLimited indicates the storefront throttled us beyond the retry budget
	ErrRateLimited = errors.New("integration: storefront rate limited")
	// ErrAuthFailed indicates the storefront rejected the tenant credential
	ErrAuthFailed = errors.New("integration: storefront authentication failed")
	// ErrTransient indicates a retryable platform/network failure that exhausted retries
	ErrTransient = errors.New("integration: transient storefront failure")
	// ErrInvalidResponse indicates the storefront returned an unparseable payload
	ErrInvalidResponse = errors.New("integration: invalid storefront response")
)

// ---------------------------------------------------------------------------
// ResourceType
// ---------------------------------------------------------------------------

// ResourceType identifies a storefront resource collection that can be ingested
type ResourceType string

const (
	// ResourceCustomers is the customer collection
	ResourceCustomers ResourceType = "customers"
	// ResourceOrders is the order collection
	ResourceOrders ResourceType = "orders"
	// ResourceProducts is the product collection
	ResourceProducts ResourceType = "products"
	// ResourceCheckouts is the abandoned checkout / cart event collection
	ResourceCheckouts ResourceType = "checkouts"
)

// AllResourceTypes returns every ingestable resource type in sync order
func AllResourceTypes() []ResourceType {
	return []ResourceType{ResourceCustomers, ResourceProducts, ResourceOrders, ResourceCheckouts}
}

// IsValid returns true if the resource type is valid
func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceCustomers, ResourceOrders, ResourceProducts, ResourceCheckouts:
		return true
	default:
		return false
	}
}

// String returns the string representation of ResourceType
func (r ResourceType) String() string {
	return string(r)
}

// ---------------------------------------------------------------------------
// Raw records and pages
// ---------------------------------------------------------------------------

// RawRecord is a single record as returned by the storefront, before
// reconciliation. ExternalID and UpdatedAt are extracted from the payload so
// callers can order and deduplicate without re-parsing the full body.
type RawRecord struct {
	// ExternalID is the record identifier on the storefront
	ExternalID string
	// UpdatedAt is the source-provided modification watermark
	UpdatedAt time.Time
	// Payload is the unmodified record body
	Payload json.RawMessage
}

// Page is one page of raw records fetched from the storefront
type Page struct {
	// Records are in the order returned by the storefront
	Records []RawRecord
	// NextPageToken is the opaque cursor for the next page, empty when done
	NextPageToken string
	// HasMore indicates more pages are available
	HasMore bool
}

// PageRequest describes which slice of a resource collection to fetch
type PageRequest struct {
	// UpdatedAtMin limits results to records modified at or after this time.
	// The zero value requests the full collection (initial sync).
	UpdatedAtMin time.Time
	// PageToken is the opaque cursor from a previous Page, empty for the first page
	PageToken string
	// PageSize is the number of records per page
	PageSize int
}

// StoreCredentials identify and authenticate one tenant's storefront.
// The access token is an opaque bearer credential; it must never be logged.
type StoreCredentials struct {
	ShopDomain  string
	AccessToken string
}

// ---------------------------------------------------------------------------
// StorefrontClient Port Interface
// ---------------------------------------------------------------------------

// StorefrontClient is the port for pulling resource collections from the
// external storefront platform. Implementations own per-tenant rate limiting
// and retry policy: FetchPage blocks while the tenant's request budget is
// exhausted and returns ErrRateLimited / ErrAuthFailed / ErrTransient only
// after its bounded retry policy gives up.
type StorefrontClient interface {
	FetchPage(ctx context.Context, store StoreCredentials, resource ResourceType, req PageRequest) (*Page, error)
}
