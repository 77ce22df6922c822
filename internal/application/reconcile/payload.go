package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/canonical"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
)

// ErrMalformedPayload indicates a record that cannot be turned into a
// canonical row. Malformed records are skipped and counted, never merged.
var ErrMalformedPayload = errors.New("reconcile: malformed payload")

// externalID normalizes a storefront identifier that may arrive as a JSON
// number or string
func externalID(n json.Number) string {
	return n.String()
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

type customerPayload struct {
	ID          json.Number     `json:"id"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Phone       string          `json:"phone"`
	Tags        string          `json:"tags"`
	OrdersCount int             `json:"orders_count"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
}

func parseCustomer(tenantID uuid.UUID, raw integration.RawRecord) (*canonical.Customer, error) {
	var p customerPayload
	if err := json.Unmarshal(raw.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := validateIdentity(p.ID, p.UpdatedAt); err != nil {
		return nil, err
	}

	return &canonical.Customer{
		Record: canonical.Record{
			TenantID:        tenantID,
			ExternalID:      externalID(p.ID),
			SourceUpdatedAt: p.UpdatedAt,
		},
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Phone:       p.Phone,
		Tags:        p.Tags,
		OrdersCount: p.OrdersCount,
		TotalSpent:  p.TotalSpent,
	}, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

type orderPayload struct {
	ID                json.Number     `json:"id"`
	UpdatedAt         time.Time       `json:"updated_at"`
	OrderNumber       json.Number     `json:"order_number"`
	Customer          *struct {
		ID json.Number `json:"id"`
	} `json:"customer"`
	Email             string          `json:"email"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Currency          string          `json:"currency"`
	SubtotalPrice     decimal.Decimal `json:"subtotal_price"`
	TotalDiscounts    decimal.Decimal `json:"total_discounts"`
	TotalTax          decimal.Decimal `json:"total_tax"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	ProcessedAt       *time.Time      `json:"processed_at"`
	CancelledAt       *time.Time      `json:"cancelled_at"`
	LineItems         []struct {
		ID        json.Number     `json:"id"`
		ProductID json.Number     `json:"product_id"`
		VariantID json.Number     `json:"variant_id"`
		Title     string          `json:"title"`
		SKU       string          `json:"sku"`
		Quantity  int             `json:"quantity"`
		Price     decimal.Decimal `json:"price"`
	} `json:"line_items"`
}

func parseOrder(tenantID uuid.UUID, raw integration.RawRecord) (*canonical.Order, error) {
	var p orderPayload
	if err := json.Unmarshal(raw.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := validateIdentity(p.ID, p.UpdatedAt); err != nil {
		return nil, err
	}

	order := &canonical.Order{
		Record: canonical.Record{
			TenantID:        tenantID,
			ExternalID:      externalID(p.ID),
			SourceUpdatedAt: p.UpdatedAt,
		},
		OrderNumber:       p.OrderNumber.String(),
		Email:             p.Email,
		FinancialStatus:   p.FinancialStatus,
		FulfillmentStatus: p.FulfillmentStatus,
		Currency:          p.Currency,
		SubtotalPrice:     p.SubtotalPrice,
		TotalDiscounts:    p.TotalDiscounts,
		TotalTax:          p.TotalTax,
		TotalPrice:        p.TotalPrice,
		ProcessedAt:       p.ProcessedAt,
		CancelledAt:       p.CancelledAt,
		LineItems:         make([]canonical.OrderLineItem, 0, len(p.LineItems)),
	}
	if p.Customer != nil {
		order.CustomerExternalID = externalID(p.Customer.ID)
	}

	for i, item := range p.LineItems {
		if item.ID.String() == "" {
			return nil, fmt.Errorf("%w: line item %d has no id", ErrMalformedPayload, i)
		}
		order.LineItems = append(order.LineItems, canonical.OrderLineItem{
			TenantID:          tenantID,
			ExternalID:        externalID(item.ID),
			ProductExternalID: externalID(item.ProductID),
			VariantExternalID: externalID(item.VariantID),
			Title:             item.Title,
			SKU:               item.SKU,
			Quantity:          item.Quantity,
			Price:             item.Price,
			Position:          i + 1,
		})
	}

	return order, nil
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

type productPayload struct {
	ID          json.Number `json:"id"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Title       string      `json:"title"`
	Handle      string      `json:"handle"`
	ProductType string      `json:"product_type"`
	Vendor      string      `json:"vendor"`
	Status      string      `json:"status"`
	Tags        string      `json:"tags"`
	PublishedAt *time.Time  `json:"published_at"`
}

func parseProduct(tenantID uuid.UUID, raw integration.RawRecord) (*canonical.Product, error) {
	var p productPayload
	if err := json.Unmarshal(raw.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := validateIdentity(p.ID, p.UpdatedAt); err != nil {
		return nil, err
	}

	return &canonical.Product{
		Record: canonical.Record{
			TenantID:        tenantID,
			ExternalID:      externalID(p.ID),
			SourceUpdatedAt: p.UpdatedAt,
		},
		Title:       p.Title,
		Handle:      p.Handle,
		ProductType: p.ProductType,
		Vendor:      p.Vendor,
		Status:      p.Status,
		Tags:        p.Tags,
		PublishedAt: p.PublishedAt,
	}, nil
}

// ---------------------------------------------------------------------------
// Checkout events
// ---------------------------------------------------------------------------

type checkoutPayload struct {
	ID          json.Number     `json:"id"`
	Token       string          `json:"token"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Email       string          `json:"email"`
	Currency    string          `json:"currency"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	CompletedAt *time.Time      `json:"completed_at"`
	RecoveryURL string          `json:"abandoned_checkout_url"`
	LineItems   []json.RawMessage `json:"line_items"`
}

func parseCheckoutEvent(tenantID uuid.UUID, raw integration.RawRecord) (*canonical.CheckoutEvent, error) {
	var p checkoutPayload
	if err := json.Unmarshal(raw.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	// Checkouts are keyed by token, older payloads only carry the numeric id
	id := p.Token
	if id == "" {
		id = p.ID.String()
	}
	if id == "" {
		return nil, fmt.Errorf("%w: missing checkout token", ErrMalformedPayload)
	}
	if p.UpdatedAt.IsZero() {
		return nil, fmt.Errorf("%w: missing updated_at", ErrMalformedPayload)
	}

	return &canonical.CheckoutEvent{
		Record: canonical.Record{
			TenantID:        tenantID,
			ExternalID:      id,
			SourceUpdatedAt: p.UpdatedAt,
		},
		Email:         p.Email,
		Currency:      p.Currency,
		TotalPrice:    p.TotalPrice,
		LineItemCount: len(p.LineItems),
		CompletedAt:   p.CompletedAt,
		RecoveryURL:   p.RecoveryURL,
	}, nil
}

// validateIdentity checks the two fields every mergeable record must carry
func validateIdentity(id json.Number, updatedAt time.Time) error {
	if id.String() == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedPayload)
	}
	if updatedAt.IsZero() {
		return fmt.Errorf("%w: missing updated_at", ErrMalformedPayload)
	}
	return nil
}
