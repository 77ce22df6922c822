package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the Admin API (10MB)
const maxResponseSize = 10 * 1024 * 1024

const accessTokenHeader = "X-Shopify-Access-Token"

// Client implements integration.StorefrontClient against the Shopify REST
// Admin API. A single Client serves every tenant; request budgets are
// tracked per shop domain.
type Client struct {
	config     Config
	httpClient *http.Client
	limiters   *limiterPool
	logger     *zap.Logger
}

// NewClient creates a new Admin API client with the given configuration
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiters: newLimiterPool(config.BucketCapacity, config.RefillPerSec),
		logger:   logger,
	}, nil
}

// FetchPage retrieves one page of a resource collection, ordered by
// updated_at ascending. Retries transient failures with capped jittered
// backoff; auth failures are returned immediately without retry.
func (c *Client) FetchPage(ctx context.Context, store integration.StoreCredentials, resource integration.ResourceType, req integration.PageRequest) (*integration.Page, error) {
	if store.ShopDomain == "" || store.AccessToken == "" {
		return nil, integration.ErrStoreNotConfigured
	}
	if !resource.IsValid() {
		return nil, fmt.Errorf("%w: unknown resource %q", integration.ErrInvalidResponse, resource)
	}

	requestURL := c.buildURL(store.ShopDomain, resource, req)
	bucket := c.limiters.bucket(store.ShopDomain)

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if err := bucket.Acquire(ctx); err != nil {
			return nil, err
		}

		page, retryAfter, err := c.doFetch(ctx, store, resource, requestURL)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if errors.Is(err, integration.ErrAuthFailed) || errors.Is(err, integration.ErrInvalidResponse) {
			return nil, err
		}

		lastErr = err
		if attempt == c.config.MaxAttempts {
			break
		}

		delay := c.backoffDelay(attempt)
		if retryAfter > delay {
			delay = retryAfter
		}

		c.logger.Warn("shopify request failed, retrying",
			zap.String("shop_domain", store.ShopDomain),
			zap.String("resource", resource.String()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

// doFetch performs a single HTTP attempt. The returned duration is the
// server-requested retry delay, zero when none was given.
func (c *Client) doFetch(ctx context.Context, store integration.StoreCredentials, resource integration.ResourceType, requestURL string) (*integration.Page, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	httpReq.Header.Set(accessTokenHeader, store.AccessToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", integration.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to parse below
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, 0, fmt.Errorf("%w: HTTP %d", integration.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("%w: HTTP 429", integration.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, 0, fmt.Errorf("%w: HTTP %d", integration.ErrTransient, resp.StatusCode)
	default:
		return nil, 0, fmt.Errorf("%w: HTTP %d", integration.ErrInvalidResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to read response: %v", integration.ErrTransient, err)
	}

	records, err := parseCollection(body, resource)
	if err != nil {
		return nil, 0, err
	}

	token := nextPageToken(resp.Header.Get("Link"))
	return &integration.Page{
		Records:       records,
		NextPageToken: token,
		HasMore:       token != "",
	}, 0, nil
}

// buildURL assembles the collection endpoint. When a page token is present
// the Admin API forbids combining it with filters, so only limit is kept.
func (c *Client) buildURL(shopDomain string, resource integration.ResourceType, req integration.PageRequest) string {
	base := c.config.BaseURL
	if base == "" {
		base = "https://" + shopDomain
	}

	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > c.config.PageSize {
		pageSize = c.config.PageSize
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageSize))
	if req.PageToken != "" {
		query.Set("page_info", req.PageToken)
	} else {
		query.Set("order", "updated_at asc")
		if !req.UpdatedAtMin.IsZero() {
			query.Set("updated_at_min", req.UpdatedAtMin.UTC().Format(time.RFC3339))
		}
	}

	return fmt.Sprintf("%s/admin/api/%s/%s.json?%s", base, c.config.APIVersion, resource, query.Encode())
}

// parseCollection extracts raw records from a collection envelope such as
// {"orders": [...]}. Records that are missing id or updated_at are passed
// through with zero values and classified downstream.
func parseCollection(body []byte, resource integration.ResourceType) ([]integration.RawRecord, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", integration.ErrInvalidResponse, err)
	}

	items, ok := envelope[resource.String()]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q collection", integration.ErrInvalidResponse, resource)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(items, &elements); err != nil {
		return nil, fmt.Errorf("%w: %q is not an array: %v", integration.ErrInvalidResponse, resource, err)
	}

	records := make([]integration.RawRecord, 0, len(elements))
	for _, element := range elements {
		var probe struct {
			ID        json.Number `json:"id"`
			UpdatedAt time.Time   `json:"updated_at"`
		}
		// Best effort: a record that fails the probe still flows through so
		// the reconciler can count it as malformed.
		_ = json.Unmarshal(element, &probe)

		records = append(records, integration.RawRecord{
			ExternalID: probe.ID.String(),
			UpdatedAt:  probe.UpdatedAt,
			Payload:    element,
		})
	}

	return records, nil
}

// backoffDelay computes the exponential delay for the given attempt with
// full jitter, capped at the configured maximum.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.config.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.config.BackoffCap {
			delay = c.config.BackoffCap
			break
		}
	}
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)) + 1)
}

// parseRetryAfter parses a Retry-After header given in seconds
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// Ensure Client implements the StorefrontClient interface
var _ integration.StorefrontClient = (*Client)(nil)
