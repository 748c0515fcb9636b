package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopkit/pkg/enums"
	"github.com/angelmondragon/shopkit/pkg/types"
)

// Order is created once at checkout. Items is a snapshot of the cart at that
// moment; later cart mutations must never reach a past order.
type Order struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	Date            time.Time           `json:"date"`
	Items           []CartLine          `json:"items"`
	Total           decimal.Decimal     `json:"total"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	PaymentDetails  string              `json:"paymentDetails,omitempty"`
	ShippingAddress types.Address       `json:"shippingAddress"`
}

// Clone deep-copies the order, items included.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	out := *o
	out.Items = CloneLines(o.Items)
	return &out
}
