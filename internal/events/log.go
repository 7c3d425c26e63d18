package events

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogPublisher logs events instead of delivering them. Used when no
// broker is configured.
type LogPublisher struct{}

func (LogPublisher) PublishOrderPlaced(_ context.Context, event OrderPlaced) error {
	log.Info().
		Str("order_id", event.OrderID).
		Str("order_number", event.OrderNumber).
		Str("owner_id", event.OwnerID).
		Int64("total_cents", event.TotalCents).
		Msg("events: order placed")
	return nil
}
