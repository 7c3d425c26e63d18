package main

import (
	"context"

	"checkout-engine/internal/config"
	"checkout-engine/internal/db"
	"checkout-engine/internal/migrate"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.FromEnv()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		log.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	log.Info().Msg("migrations applied")
}
