package inventory

import "context"

// Availability is the catalog's answer for one product: whether it can be
// sold, how many units are available, and the current unit price. The
// catalog is the sole source of truth for prices; the engine never invents
// them.
type Availability struct {
	InStock        bool  `json:"inStock"`
	MaxQuantity    int   `json:"maxQuantity"`
	UnitPriceCents int64 `json:"unitPriceCents"`
}

// Snapshot is a read-only, advisory view of per-product availability.
// Quantities can drift between reads, so every transition into review or
// placement re-fetches.
type Snapshot interface {
	Available(ctx context.Context, productID string) (Availability, error)
}
