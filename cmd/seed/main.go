package main

import (
	"context"

	"checkout-engine/internal/config"
	"checkout-engine/internal/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type seedProduct struct {
	id         string
	name       string
	priceCents int64
	stock      int
}

type seedPromo struct {
	code            string
	discountPercent int64
}

// Development fixtures; production catalogs and promotions come from
// their owning systems.
var (
	products = []seedProduct{
		{"prod-hoodie", "Zip Hoodie", 4599, 25},
		{"prod-tee", "Graphic Tee", 1999, 120},
		{"prod-sneakers", "Canvas Sneakers", 3299, 40},
		{"prod-cap", "Wool Cap", 1499, 60},
		{"prod-backpack", "Daypack 20L", 5499, 15},
	}
	promos = []seedPromo{
		{"save10", 10},
		{"save15", 15},
		{"save20", 20},
	}
)

func main() {
	cfg := config.FromEnv()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		log.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	if err := seed(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
	log.Info().Int("products", len(products)).Int("promos", len(promos)).Msg("seed complete")
}

func seed(ctx context.Context, pool *pgxpool.Pool) error {
	const productQuery = `
INSERT INTO products (id, name, price_cents, stock)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = $2, price_cents = $3, stock = $4
`
	for _, p := range products {
		if _, err := pool.Exec(ctx, productQuery, p.id, p.name, p.priceCents, p.stock); err != nil {
			return err
		}
	}

	const promoQuery = `
INSERT INTO promo_codes (code, discount_percent, active)
VALUES ($1, $2, TRUE)
ON CONFLICT (code) DO UPDATE SET discount_percent = $2, active = TRUE
`
	for _, p := range promos {
		if _, err := pool.Exec(ctx, promoQuery, p.code, p.discountPercent); err != nil {
			return err
		}
	}
	return nil
}
