package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/canonical"
)

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

// CustomerModel is the persistence model for canonical customers
type CustomerModel struct {
	BaseModel
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:udx_customers_tenant_external"`
	ExternalID      string          `gorm:"size:64;not null;uniqueIndex:udx_customers_tenant_external"`
	SourceUpdatedAt time.Time       `gorm:"not null;index"`
	Revision        int             `gorm:"not null;default:1"`
	Email           string          `gorm:"size:255"`
	FirstName       string          `gorm:"size:255"`
	LastName        string          `gorm:"size:255"`
	Phone           string          `gorm:"size:50"`
	Tags            string          `gorm:"type:text"`
	OrdersCount     int             `gorm:"not null;default:0"`
	TotalSpent      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
}

// TableName returns the table name for CustomerModel
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts CustomerModel to domain Customer
func (m *CustomerModel) ToDomain() *canonical.Customer {
	return &canonical.Customer{
		Record:      m.toRecordCustomer(),
		Email:       m.Email,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Phone:       m.Phone,
		Tags:        m.Tags,
		OrdersCount: m.OrdersCount,
		TotalSpent:  m.TotalSpent,
	}
}

func (m *CustomerModel) toRecordCustomer() canonical.Record {
	return canonical.Record{
		ID:              m.ID,
		TenantID:        m.TenantID,
		ExternalID:      m.ExternalID,
		SourceUpdatedAt: m.SourceUpdatedAt,
		Revision:        m.Revision,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates CustomerModel from domain Customer
func (m *CustomerModel) FromDomain(c *canonical.Customer) {
	m.ID = c.ID
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
	m.TenantID = c.TenantID
	m.ExternalID = c.ExternalID
	m.SourceUpdatedAt = c.SourceUpdatedAt
	m.Revision = c.Revision
	m.Email = c.Email
	m.FirstName = c.FirstName
	m.LastName = c.LastName
	m.Phone = c.Phone
	m.Tags = c.Tags
	m.OrdersCount = c.OrdersCount
	m.TotalSpent = c.TotalSpent
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// OrderModel is the persistence model for canonical orders
type OrderModel struct {
	BaseModel
	TenantID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:udx_orders_tenant_external"`
	ExternalID         string          `gorm:"size:64;not null;uniqueIndex:udx_orders_tenant_external"`
	SourceUpdatedAt    time.Time       `gorm:"not null;index"`
	Revision           int             `gorm:"not null;default:1"`
	OrderNumber        string          `gorm:"size:50"`
	CustomerExternalID string          `gorm:"size:64;index"`
	Email              string          `gorm:"size:255"`
	FinancialStatus    string          `gorm:"size:50"`
	FulfillmentStatus  string          `gorm:"size:50"`
	Currency           string          `gorm:"size:3"`
	SubtotalPrice      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalDiscounts     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalTax           decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalPrice         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	ProcessedAt        *time.Time
	CancelledAt        *time.Time
	LineItems          []OrderLineItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for OrderModel
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts OrderModel to domain Order
func (m *OrderModel) ToDomain() *canonical.Order {
	order := &canonical.Order{
		Record: canonical.Record{
			ID:              m.ID,
			TenantID:        m.TenantID,
			ExternalID:      m.ExternalID,
			SourceUpdatedAt: m.SourceUpdatedAt,
			Revision:        m.Revision,
			CreatedAt:       m.CreatedAt,
			UpdatedAt:       m.UpdatedAt,
		},
		OrderNumber:        m.OrderNumber,
		CustomerExternalID: m.CustomerExternalID,
		Email:              m.Email,
		FinancialStatus:    m.FinancialStatus,
		FulfillmentStatus:  m.FulfillmentStatus,
		Currency:           m.Currency,
		SubtotalPrice:      m.SubtotalPrice,
		TotalDiscounts:     m.TotalDiscounts,
		TotalTax:           m.TotalTax,
		TotalPrice:         m.TotalPrice,
		ProcessedAt:        m.ProcessedAt,
		CancelledAt:        m.CancelledAt,
		LineItems:          make([]canonical.OrderLineItem, len(m.LineItems)),
	}
	for i, item := range m.LineItems {
		order.LineItems[i] = *item.ToDomain()
	}
	return order
}

// FromDomain populates OrderModel from domain Order. Line items are mapped
// separately because merges replace them wholesale.
func (m *OrderModel) FromDomain(o *canonical.Order) {
	m.ID = o.ID
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
	m.TenantID = o.TenantID
	m.ExternalID = o.ExternalID
	m.SourceUpdatedAt = o.SourceUpdatedAt
	m.Revision = o.Revision
	m.OrderNumber = o.OrderNumber
	m.CustomerExternalID = o.CustomerExternalID
	m.Email = o.Email
	m.FinancialStatus = o.FinancialStatus
	m.FulfillmentStatus = o.FulfillmentStatus
	m.Currency = o.Currency
	m.SubtotalPrice = o.SubtotalPrice
	m.TotalDiscounts = o.TotalDiscounts
	m.TotalTax = o.TotalTax
	m.TotalPrice = o.TotalPrice
	m.ProcessedAt = o.ProcessedAt
	m.CancelledAt = o.CancelledAt
}

// OrderLineItemModel is the persistence model for order line items
type OrderLineItemModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ExternalID        string          `gorm:"size:64;not null"`
	ProductExternalID string          `gorm:"size:64"`
	VariantExternalID string          `gorm:"size:64"`
	Title             string          `gorm:"size:500"`
	SKU               string          `gorm:"size:255"`
	Quantity          int             `gorm:"not null;default:0"`
	Price             decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Position          int             `gorm:"not null;default:0"`
}

// TableName returns the table name for OrderLineItemModel
func (OrderLineItemModel) TableName() string {
	return "order_line_items"
}

// ToDomain converts OrderLineItemModel to domain OrderLineItem
func (m *OrderLineItemModel) ToDomain() *canonical.OrderLineItem {
	return &canonical.OrderLineItem{
		ID:                m.ID,
		TenantID:          m.TenantID,
		OrderID:           m.OrderID,
		ExternalID:        m.ExternalID,
		ProductExternalID: m.ProductExternalID,
		VariantExternalID: m.VariantExternalID,
		Title:             m.Title,
		SKU:               m.SKU,
		Quantity:          m.Quantity,
		Price:             m.Price,
		Position:          m.Position,
	}
}

// FromDomain populates OrderLineItemModel from domain OrderLineItem
func (m *OrderLineItemModel) FromDomain(item *canonical.OrderLineItem) {
	m.ID = item.ID
	m.TenantID = item.TenantID
	m.OrderID = item.OrderID
	m.ExternalID = item.ExternalID
	m.ProductExternalID = item.ProductExternalID
	m.VariantExternalID = item.VariantExternalID
	m.Title = item.Title
	m.SKU = item.SKU
	m.Quantity = item.Quantity
	m.Price = item.Price
	m.Position = item.Position
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// ProductModel is the persistence model for canonical products
type ProductModel struct {
	BaseModel
	TenantID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:udx_products_tenant_external"`
	ExternalID      string    `gorm:"size:64;not null;uniqueIndex:udx_products_tenant_external"`
	SourceUpdatedAt time.Time `gorm:"not null;index"`
	Revision        int       `gorm:"not null;default:1"`
	Title           string    `gorm:"size:500"`
	Handle          string    `gorm:"size:255;index"`
	ProductType     string    `gorm:"size:255"`
	Vendor          string    `gorm:"size:255"`
	Status          string    `gorm:"size:20"`
	Tags            string    `gorm:"type:text"`
	PublishedAt     *time.Time
}

// TableName returns the table name for ProductModel
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts ProductModel to domain Product
func (m *ProductModel) ToDomain() *canonical.Product {
	return &canonical.Product{
		Record: canonical.Record{
			ID:              m.ID,
			TenantID:        m.TenantID,
			ExternalID:      m.ExternalID,
			SourceUpdatedAt: m.SourceUpdatedAt,
			Revision:        m.Revision,
			CreatedAt:       m.CreatedAt,
			UpdatedAt:       m.UpdatedAt,
		},
		Title:       m.Title,
		Handle:      m.Handle,
		ProductType: m.ProductType,
		Vendor:      m.Vendor,
		Status:      m.Status,
		Tags:        m.Tags,
		PublishedAt: m.PublishedAt,
	}
}

// FromDomain populates ProductModel from domain Product
func (m *ProductModel) FromDomain(p *canonical.Product) {
	m.ID = p.ID
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
	m.TenantID = p.TenantID
	m.ExternalID = p.ExternalID
	m.SourceUpdatedAt = p.SourceUpdatedAt
	m.Revision = p.Revision
	m.Title = p.Title
	m.Handle = p.Handle
	m.ProductType = p.ProductType
	m.Vendor = p.Vendor
	m.Status = p.Status
	m.Tags = p.Tags
	m.PublishedAt = p.PublishedAt
}

// ---------------------------------------------------------------------------
// Checkout events
// ---------------------------------------------------------------------------

// CheckoutEventModel is the persistence model for canonical checkout events
type CheckoutEventModel struct {
	BaseModel
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:udx_checkout_events_tenant_external"`
	ExternalID      string          `gorm:"size:128;not null;uniqueIndex:udx_checkout_events_tenant_external"`
	SourceUpdatedAt time.Time       `gorm:"not null;index"`
	Revision        int             `gorm:"not null;default:1"`
	Email           string          `gorm:"size:255"`
	Currency        string          `gorm:"size:3"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	LineItemCount   int             `gorm:"not null;default:0"`
	CompletedAt     *time.Time
	RecoveryURL     string `gorm:"size:2048"`
}

// TableName returns the table name for CheckoutEventModel
func (CheckoutEventModel) TableName() string {
	return "checkout_events"
}

// ToDomain converts CheckoutEventModel to domain CheckoutEvent
func (m *CheckoutEventModel) ToDomain() *canonical.CheckoutEvent {
	return &canonical.CheckoutEvent{
		Record: canonical.Record{
			ID:              m.ID,
			TenantID:        m.TenantID,
			ExternalID:      m.ExternalID,
			SourceUpdatedAt: m.SourceUpdatedAt,
			Revision:        m.Revision,
			CreatedAt:       m.CreatedAt,
			UpdatedAt:       m.UpdatedAt,
		},
		Email:         m.Email,
		Currency:      m.Currency,
		TotalPrice:    m.TotalPrice,
		LineItemCount: m.LineItemCount,
		CompletedAt:   m.CompletedAt,
		RecoveryURL:   m.RecoveryURL,
	}
}

// FromDomain populates CheckoutEventModel from domain CheckoutEvent
func (m *CheckoutEventModel) FromDomain(e *canonical.CheckoutEvent) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
	m.TenantID = e.TenantID
	m.ExternalID = e.ExternalID
	m.SourceUpdatedAt = e.SourceUpdatedAt
	m.Revision = e.Revision
	m.Email = e.Email
	m.Currency = e.Currency
	m.TotalPrice = e.TotalPrice
	m.LineItemCount = e.LineItemCount
	m.CompletedAt = e.CompletedAt
	m.RecoveryURL = e.RecoveryURL
}
