package canonical

import "time"

// Product mirrors a storefront product
type Product struct {
	Record
	Title       string
	Handle      string
	ProductType string
	Vendor      string
	Status      string
	Tags        string
	PublishedAt *time.Time
}
