package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"checkout-engine/internal/domain"
)

// Ledger is the durable, append-only store of placed orders. Creation is
// idempotent on the caller-supplied key; order numbers are globally
// unique across all orders.
type Ledger interface {
	// Create persists a new order for idempotencyKey, or returns the
	// existing one unchanged. The boolean reports whether a new order was
	// written.
	Create(ctx context.Context, idempotencyKey string, draft domain.OrderDraft) (*domain.Order, bool, error)

	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)

	// UpdateStatus applies a fulfillment-driven status transition,
	// rejecting moves the transition table disallows.
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

// newOrderNumber synthesizes an ORD-<year>-<6-digit> number. Uniqueness is
// enforced by the store; callers retry on collision.
func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%06d", now.Year(), rand.Intn(1_000_000))
}
