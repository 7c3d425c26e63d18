package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"checkout-engine/internal/cartstore"
	"checkout-engine/internal/checkout"
	"checkout-engine/internal/config"
	"checkout-engine/internal/db"
	"checkout-engine/internal/events"
	"checkout-engine/internal/httpserver"
	"checkout-engine/internal/inventory"
	"checkout-engine/internal/ledger"
	"checkout-engine/internal/ownerlock"
	"checkout-engine/internal/pricing"
	"checkout-engine/internal/promo"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Str("service", "checkout-engine").Logger()

	cfg := config.FromEnv()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, db.Options{
		MaxConns:     cfg.DBMaxConns,
		ConnIdleTime: cfg.DBConnIdleTime,
		ConnLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect to db")
	}
	defer dbpool.Close()

	// The cache serves cart-building reads only. Checkout re-validation
	// reads the catalog directly so stock drift inside the cache TTL is
	// still caught at placement.
	catalog := inventory.NewPostgres(dbpool)
	var cartInv inventory.Snapshot = catalog
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		cartInv = inventory.NewCached(catalog, client, cfg.InventoryCacheTTL)
		log.Info().Str("addr", cfg.RedisAddr).Msg("inventory cache enabled")
	}

	var publisher events.Publisher = events.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := events.NewKafka(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer kafkaPub.Close()
		publisher = kafkaPub
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka publisher enabled")
	}

	locks := ownerlock.New()
	promos := promo.NewPostgres(dbpool)
	carts := cartstore.New(locks, cartInv, promos, cfg.UpstreamTimeout)
	pricer := pricing.New(pricing.Config{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
		TaxRate:               cfg.TaxRate,
	})
	orders := ledger.NewPostgres(dbpool)
	manager := checkout.NewManager(checkout.Deps{
		Locks:           locks,
		Carts:           carts,
		Inventory:       catalog,
		Pricer:          pricer,
		Promos:          promos,
		Orders:          orders,
		Publisher:       publisher,
		UpstreamTimeout: cfg.UpstreamTimeout,
		SessionTTL:      cfg.SessionTTL,
	})

	srv := httpserver.New(cfg.HTTPAddr, dbpool, httpserver.Deps{
		Carts:    carts,
		Checkout: manager,
		Orders:   orders,
		Pricer:   pricer,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("server stopped")
	}
}
