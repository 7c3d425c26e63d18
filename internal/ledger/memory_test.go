package ledger

import (
	"context"
	"testing"
	"time"

	"checkout-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDraft(ownerID string) domain.OrderDraft {
	return domain.OrderDraft{
		OwnerID: ownerID,
		Items: []domain.LineItem{
			{ProductID: "prod-hoodie", Quantity: 2, UnitPriceCents: 4599},
		},
		Totals: domain.OrderTotals{
			SubtotalCents: 9198,
			TaxCents:      736,
			TotalCents:    9934,
		},
		ShippingAddress: domain.ShippingAddress{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			Email:       "ada@example.com",
			Phone:       "+15550100",
			AddressLine: "1 Analytical Way",
			City:        "London",
			State:       "LDN",
			PostalCode:  "E1 6AN",
			Country:     "GB",
		},
		PaymentMethodLabel: "Card ending 4242",
	}
}

func TestCreateAssignsNumberAndStatus(t *testing.T) {
	m := NewMemory()

	order, created, err := m.Create(context.Background(), "key-1", testDraft("o1"))
	require.NoError(t, err)
	require.True(t, created)

	assert.NotEmpty(t, order.ID)
	assert.Regexp(t, `^ORD-\d{4}-\d{6}$`, order.Number)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, int64(9934), order.Totals.TotalCents)
	assert.WithinDuration(t, time.Now().UTC(), order.CreatedAt, time.Minute)
}

func TestCreateIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, created, err := m.Create(ctx, "key-1", testDraft("o1"))
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := m.Create(ctx, "key-1", testDraft("o1"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Number, second.Number)
	assert.Equal(t, 1, m.Count())
}

func TestCreateDistinctKeysDistinctOrders(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, _, err := m.Create(ctx, "key-1", testDraft("o1"))
	require.NoError(t, err)
	second, _, err := m.Create(ctx, "key-2", testDraft("o1"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Number, second.Number)
	assert.Equal(t, 2, m.Count())
}

func TestGetByIDAndNumber(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	order, _, err := m.Create(ctx, "key-1", testDraft("o1"))
	require.NoError(t, err)

	byID, err := m.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Number, byID.Number)

	byNumber, err := m.GetByNumber(ctx, order.Number)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)

	_, err = m.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = m.GetByNumber(ctx, "ORD-2000-000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByOwner(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, _, err := m.Create(ctx, "key-1", testDraft("o1"))
	require.NoError(t, err)
	_, _, err = m.Create(ctx, "key-2", testDraft("o1"))
	require.NoError(t, err)
	_, _, err = m.Create(ctx, "key-3", testDraft("o2"))
	require.NoError(t, err)

	orders, err := m.ListByOwner(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = m.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateStatus(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	order, _, err := m.Create(ctx, "key-1", testDraft("o1"))
	require.NoError(t, err)

	require.NoError(t, m.UpdateStatus(ctx, order.ID, domain.StatusProcessing))
	require.NoError(t, m.UpdateStatus(ctx, order.ID, domain.StatusShipped))
	require.NoError(t, m.UpdateStatus(ctx, order.ID, domain.StatusDelivered))

	// Delivered is terminal.
	err = m.UpdateStatus(ctx, order.ID, domain.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
}

func TestUpdateStatusSkippingStepRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	order, _, err := m.Create(ctx, "key-1", testDraft("o1"))
	require.NoError(t, err)

	err = m.UpdateStatus(ctx, order.ID, domain.StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	// Same-status update is a no-op, not an error.
	assert.NoError(t, m.UpdateStatus(ctx, order.ID, domain.StatusPending))
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	m := NewMemory()

	err := m.UpdateStatus(context.Background(), "missing", domain.StatusProcessing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
