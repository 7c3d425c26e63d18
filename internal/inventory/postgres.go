package inventory

import (
	"context"
	"errors"

	"checkout-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type postgresSnapshot struct {
	pool *pgxpool.Pool
}

// NewPostgres reads availability from the catalog's products table.
func NewPostgres(pool *pgxpool.Pool) Snapshot {
	return &postgresSnapshot{pool: pool}
}

func (s *postgresSnapshot) Available(ctx context.Context, productID string) (Availability, error) {
	const q = `
SELECT stock, price_cents
FROM products
WHERE id = $1
`
	var stock int
	var priceCents int64
	err := s.pool.QueryRow(ctx, q, productID).Scan(&stock, &priceCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Availability{}, domain.ErrNotFound
		}
		log.Error().Err(err).Str("product_id", productID).Msg("inventory: availability query failed")
		return Availability{}, err
	}

	return Availability{
		InStock:        stock > 0,
		MaxQuantity:    stock,
		UnitPriceCents: priceCents,
	}, nil
}
