package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"checkout-engine/internal/domain"
	"github.com/gofrs/uuid"
)

// MemoryLedger keeps orders in memory with the same idempotency and
// uniqueness guarantees as the postgres implementation. Used by tests and
// local development.
type MemoryLedger struct {
	mu      sync.Mutex
	byKey   map[string]string
	byID    map[string]*domain.Order
	numbers map[string]bool

	// FailCreate makes the next Create return this error, modelling an
	// unavailable upstream.
	FailCreate error
}

func NewMemory() *MemoryLedger {
	return &MemoryLedger{
		byKey:   make(map[string]string),
		byID:    make(map[string]*domain.Order),
		numbers: make(map[string]bool),
	}
}

func (m *MemoryLedger) Create(_ context.Context, idempotencyKey string, draft domain.OrderDraft) (*domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreate != nil {
		err := m.FailCreate
		m.FailCreate = nil
		return nil, false, err
	}

	if id, ok := m.byKey[idempotencyKey]; ok {
		return copyOrder(m.byID[id]), false, nil
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	number := newOrderNumber(now)
	for m.numbers[number] {
		number = newOrderNumber(now)
	}

	order := &domain.Order{
		ID:                 uid.String(),
		Number:             number,
		OwnerID:            draft.OwnerID,
		Items:              append([]domain.LineItem(nil), draft.Items...),
		Totals:             draft.Totals,
		ShippingAddress:    draft.ShippingAddress,
		PaymentMethodLabel: draft.PaymentMethodLabel,
		Status:             domain.StatusPending,
		CreatedAt:          now,
	}

	m.byKey[idempotencyKey] = order.ID
	m.byID[order.ID] = order
	m.numbers[number] = true
	return copyOrder(order), true, nil
}

func (m *MemoryLedger) GetByID(_ context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.byID[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyOrder(order), nil
}

func (m *MemoryLedger) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.byID {
		if order.Number == number {
			return copyOrder(order), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryLedger) ListByOwner(_ context.Context, ownerID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []domain.Order
	for _, order := range m.byID {
		if order.OwnerID == ownerID {
			orders = append(orders, *copyOrder(order))
		}
	}
	return orders, nil
}

func (m *MemoryLedger) UpdateStatus(_ context.Context, orderID string, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.byID[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	if order.Status == status {
		return nil
	}
	if !domain.CanTransition(order.Status, status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, order.Status, status)
	}
	order.Status = status
	return nil
}

// Count reports the number of persisted orders.
func (m *MemoryLedger) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func copyOrder(o *domain.Order) *domain.Order {
	out := *o
	out.Items = append([]domain.LineItem(nil), o.Items...)
	return &out
}
