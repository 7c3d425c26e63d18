package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-engine/internal/domain"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const orderNumberAttempts = 5

type postgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Ledger {
	return &postgresLedger{pool: pool}
}

func (l *postgresLedger) Create(ctx context.Context, idempotencyKey string, draft domain.OrderDraft) (*domain.Order, bool, error) {
	if existing, err := l.getByIdempotencyKey(ctx, idempotencyKey); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order, err := l.insert(ctx, idempotencyKey, draft)
		if err == nil {
			log.Info().
				Str("order_id", order.ID).
				Str("order_number", order.Number).
				Str("owner_id", order.OwnerID).
				Msg("ledger: order created")
			return order, true, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case "orders_idempotency_key_idx":
				// Lost a race with a concurrent retry carrying the same key.
				existing, getErr := l.getByIdempotencyKey(ctx, idempotencyKey)
				if getErr != nil {
					return nil, false, getErr
				}
				return existing, false, nil
			case "orders_order_number_idx":
				lastErr = err
				continue
			}
		}
		return nil, false, fmt.Errorf("ledger: insert order: %w", err)
	}
	return nil, false, fmt.Errorf("ledger: order number collisions exhausted retries: %w", lastErr)
}

func (l *postgresLedger) insert(ctx context.Context, idempotencyKey string, draft domain.OrderDraft) (*domain.Order, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate order id: %w", err)
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:                 id.String(),
		Number:             newOrderNumber(now),
		OwnerID:            draft.OwnerID,
		Items:              draft.Items,
		Totals:             draft.Totals,
		ShippingAddress:    draft.ShippingAddress,
		PaymentMethodLabel: draft.PaymentMethodLabel,
		Status:             domain.StatusPending,
		CreatedAt:          now,
	}

	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("marshal shipping address: %w", err)
	}

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const orderQuery = `
INSERT INTO orders (id, order_number, idempotency_key, owner_id, status,
	subtotal_cents, discount_cents, shipping_cents, tax_cents, total_cents,
	shipping_address, payment_method_label, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`
	if _, err := tx.Exec(ctx, orderQuery,
		order.ID,
		order.Number,
		idempotencyKey,
		order.OwnerID,
		string(order.Status),
		order.Totals.SubtotalCents,
		order.Totals.DiscountCents,
		order.Totals.ShippingCents,
		order.Totals.TaxCents,
		order.Totals.TotalCents,
		address,
		order.PaymentMethodLabel,
		order.CreatedAt,
	); err != nil {
		return nil, err
	}

	const itemQuery = `
INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents, added_at)
VALUES ($1, $2, $3, $4, $5)
`
	for _, item := range order.Items {
		if _, err := tx.Exec(ctx, itemQuery,
			order.ID, item.ProductID, item.Quantity, item.UnitPriceCents, item.AddedAt,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

func (l *postgresLedger) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return l.fetchOrder(ctx, `WHERE id = $1`, orderID)
}

func (l *postgresLedger) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return l.fetchOrder(ctx, `WHERE order_number = $1`, number)
}

func (l *postgresLedger) getByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return l.fetchOrder(ctx, `WHERE idempotency_key = $1`, key)
}

const orderColumns = `
SELECT id::text, order_number, owner_id, status,
	subtotal_cents, discount_cents, shipping_cents, tax_cents, total_cents,
	shipping_address, payment_method_label, created_at
FROM orders
`

func (l *postgresLedger) fetchOrder(ctx context.Context, where string, arg any) (*domain.Order, error) {
	order, err := scanOrder(l.pool.QueryRow(ctx, orderColumns+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	items, err := l.fetchItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (l *postgresLedger) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	const q = orderColumns + `WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := l.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := l.fetchItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (l *postgresLedger) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	current, err := l.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if current.Status == status {
		return nil
	}
	if !domain.CanTransition(current.Status, status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, current.Status, status)
	}

	const q = `UPDATE orders SET status = $1 WHERE id = $2`
	cmd, err := l.pool.Exec(ctx, q, string(status), orderID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	log.Info().Str("order_id", orderID).Stringer("status", status).Msg("ledger: order status updated")
	return nil
}

func (l *postgresLedger) fetchItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	const q = `
SELECT product_id, quantity, unit_price_cents, added_at
FROM order_items
WHERE order_id = $1
ORDER BY added_at ASC
`
	rows, err := l.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPriceCents, &item.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var status string
	var address []byte
	if err := row.Scan(
		&order.ID,
		&order.Number,
		&order.OwnerID,
		&status,
		&order.Totals.SubtotalCents,
		&order.Totals.DiscountCents,
		&order.Totals.ShippingCents,
		&order.Totals.TaxCents,
		&order.Totals.TotalCents,
		&address,
		&order.PaymentMethodLabel,
		&order.CreatedAt,
	); err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	return &order, nil
}
