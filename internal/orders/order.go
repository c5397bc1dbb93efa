package orders

import (
	"time"

	"github.com/toolshop/storefront/internal/session"
	"github.com/toolshop/storefront/pkg/enums"
)

// PaymentDetails holds the method-specific fields captured at checkout.
type PaymentDetails struct {
	Phone string `json:"phone,omitempty"`
}

// Order is an immutable record of a completed checkout.
type Order struct {
	ID        int64               `json:"id"`
	Items     []session.CartLine  `json:"items"`
	Subtotal  int64               `json:"subtotal"`
	Shipping  int64               `json:"shipping"`
	Total     int64               `json:"total"`
	Method    enums.PaymentMethod `json:"method"`
	Payment   PaymentDetails      `json:"payment"`
	CreatedAt time.Time           `json:"date"`
	Status    enums.OrderStatus   `json:"status"`
}

// Clone returns a deep copy.
func (o Order) Clone() Order {
	out := o
	out.Items = session.CloneLines(o.Items)
	return out
}

// ItemCount sums the quantities of every line.
func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Items {
		n += l.Quantity
	}
	return n
}

// Page is one slice of the order history.
type Page struct {
	Items  []Order `json:"items"`
	Cursor string  `json:"cursor,omitempty"`
}
