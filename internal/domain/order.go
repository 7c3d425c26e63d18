package domain

import "time"

// OrderStatus is the fulfillment state of a placed order. The engine only
// ever writes StatusPending; later transitions come from the external
// fulfillment system.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) String() string { return string(s) }

var allowedStatusTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusCancelled:  true,
	},
	StatusProcessing: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether an order may move from one status to
// another. Terminal statuses allow no further moves.
func CanTransition(from, to OrderStatus) bool {
	return allowedStatusTransitions[from][to]
}

// OrderTotals are the computed charge amounts in minor units. Each
// component is rounded half-even to two decimal places; the total is
// rounded from the unrounded intermediates.
type OrderTotals struct {
	SubtotalCents int64 `json:"subtotalCents"`
	DiscountCents int64 `json:"discountCents"`
	ShippingCents int64 `json:"shippingCents"`
	TaxCents      int64 `json:"taxCents"`
	TotalCents    int64 `json:"totalCents"`
}

// Order is the immutable record of a placed checkout. Exactly one order
// exists per idempotency key; order numbers are globally unique.
type Order struct {
	ID                 string          `json:"id"`
	Number             string          `json:"orderNumber"`
	OwnerID            string          `json:"ownerId"`
	Items              []LineItem      `json:"items"`
	Totals             OrderTotals     `json:"totals"`
	ShippingAddress    ShippingAddress `json:"shippingAddress"`
	PaymentMethodLabel string          `json:"paymentMethodLabel"`
	Status             OrderStatus     `json:"status"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// OrderDraft is everything the ledger needs to persist a new order. It is
// assembled by the checkout manager after re-validation and repricing.
type OrderDraft struct {
	OwnerID            string
	Items              []LineItem
	Totals             OrderTotals
	ShippingAddress    ShippingAddress
	PaymentMethodLabel string
}
