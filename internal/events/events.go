package events

import "context"

// OrderPlaced is published after a new order is committed. Delivery is
// fire-and-forget, at-least-once; consumers must be idempotent on
// order_id.
type OrderPlaced struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	OwnerID     string `json:"owner_id"`
	TotalCents  int64  `json:"total_cents"`
}

// Publisher delivers engine events to notification collaborators.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error
}
