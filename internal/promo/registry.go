package promo

import (
	"context"

	"checkout-engine/internal/domain"
)

// Registry resolves promo codes case-insensitively. Codes are owned by an
// external promotions system; the engine only reads them.
type Registry interface {
	// Lookup returns the promo for code. Unknown and inactive codes both
	// yield domain.ErrInvalidPromoCode.
	Lookup(ctx context.Context, code string) (*domain.PromoCode, error)
}
