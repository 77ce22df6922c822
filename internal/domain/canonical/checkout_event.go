package canonical

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutEvent mirrors a storefront cart/checkout event. The external
// identifier is the checkout token.
type CheckoutEvent struct {
	Record
	Email         string
	Currency      string
	TotalPrice    decimal.Decimal
	LineItemCount int
	CompletedAt   *time.Time
	RecoveryURL   string
}
