package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The document store speaks bare JSON numbers for prices.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a catalog listing as stored by the remote document store.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Images    []string        `json:"images,omitempty"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
}

// CartLine is a product plus the quantity a shopper put in their cart.
// A cart holds at most one line per product id.
type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

// LineTotal is the price contribution of this line.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CloneLines deep-copies cart lines so order snapshots never alias live cart state.
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	for i, line := range lines {
		out[i] = line
		if line.Images != nil {
			out[i].Images = append([]string(nil), line.Images...)
		}
	}
	return out
}

// CloneProducts deep-copies product snapshots (wishlist entries).
func CloneProducts(products []Product) []Product {
	if products == nil {
		return nil
	}
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p
		if p.Images != nil {
			out[i].Images = append([]string(nil), p.Images...)
		}
	}
	return out
}
