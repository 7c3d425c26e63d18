package promo

import (
	"context"
	"errors"
	"strings"

	"checkout-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type postgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgres reads promo codes from the promo_codes table. Codes are
// stored lowercased; lookups normalize the same way.
func NewPostgres(pool *pgxpool.Pool) Registry {
	return &postgresRegistry{pool: pool}
}

func (r *postgresRegistry) Lookup(ctx context.Context, code string) (*domain.PromoCode, error) {
	const q = `
SELECT code, discount_percent, active
FROM promo_codes
WHERE code = $1
`
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return nil, domain.ErrInvalidPromoCode
	}

	var p domain.PromoCode
	err := r.pool.QueryRow(ctx, q, normalized).Scan(&p.Code, &p.DiscountPercent, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidPromoCode
		}
		log.Error().Err(err).Str("code", normalized).Msg("promo registry: lookup failed")
		return nil, err
	}
	if !p.Active {
		return nil, domain.ErrInvalidPromoCode
	}
	return &p, nil
}
