package inventory

import (
	"context"
	"sync"

	"checkout-engine/internal/domain"
)

// MemorySnapshot is an in-memory Snapshot for tests and local development.
// SetStock mutations model inventory drift between checkout start and
// placement.
type MemorySnapshot struct {
	mu       sync.RWMutex
	products map[string]Availability
}

func NewMemory() *MemorySnapshot {
	return &MemorySnapshot{products: make(map[string]Availability)}
}

// Put registers a product with its price and available stock.
func (m *MemorySnapshot) Put(productID string, priceCents int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[productID] = Availability{
		InStock:        stock > 0,
		MaxQuantity:    stock,
		UnitPriceCents: priceCents,
	}
}

// SetStock adjusts available stock for an already registered product.
func (m *MemorySnapshot) SetStock(productID string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	av, ok := m.products[productID]
	if !ok {
		return
	}
	av.InStock = stock > 0
	av.MaxQuantity = stock
	m.products[productID] = av
}

func (m *MemorySnapshot) Available(_ context.Context, productID string) (Availability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	av, ok := m.products[productID]
	if !ok {
		return Availability{}, domain.ErrNotFound
	}
	return av, nil
}
