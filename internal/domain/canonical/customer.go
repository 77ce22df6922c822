package canonical

import "github.com/shopspring/decimal"

// Customer mirrors a storefront customer
type Customer struct {
	Record
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	Tags        string
	OrdersCount int
	TotalSpent  decimal.Decimal
}
