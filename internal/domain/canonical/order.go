package canonical

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order mirrors a storefront order. An order owns an ordered sequence of
// line items; merging an order set-replaces the line items in the same
// transaction as the order row, and deleting an order cascades to them.
type Order struct {
	Record
	OrderNumber        string
	CustomerExternalID string
	Email              string
	FinancialStatus    string
	FulfillmentStatus  string
	Currency           string
	SubtotalPrice      decimal.Decimal
	TotalDiscounts     decimal.Decimal
	TotalTax           decimal.Decimal
	TotalPrice         decimal.Decimal
	ProcessedAt        *time.Time
	CancelledAt        *time.Time
	// LineItems are kept in the order the storefront returned them
	LineItems []OrderLineItem
}

// OrderLineItem is one line of an order, referencing a product by its
// external identifier
type OrderLineItem struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	OrderID           uuid.UUID
	ExternalID        string
	ProductExternalID string
	VariantExternalID string
	Title             string
	SKU               string
	Quantity          int
	Price             decimal.Decimal
	Position          int
}
