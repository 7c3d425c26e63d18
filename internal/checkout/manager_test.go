package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"checkout-engine/internal/cartstore"
	"checkout-engine/internal/domain"
	"checkout-engine/internal/events"
	"checkout-engine/internal/inventory"
	"checkout-engine/internal/ledger"
	"checkout-engine/internal/ownerlock"
	"checkout-engine/internal/pricing"
	"checkout-engine/internal/promo"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	ch chan events.OrderPlaced
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{ch: make(chan events.OrderPlaced, 4)}
}

func (p *capturePublisher) PublishOrderPlaced(_ context.Context, event events.OrderPlaced) error {
	p.ch <- event
	return nil
}

func (p *capturePublisher) wait(t *testing.T) events.OrderPlaced {
	t.Helper()
	select {
	case e := <-p.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no OrderPlaced event published")
		return events.OrderPlaced{}
	}
}

type fixture struct {
	inv       *inventory.MemorySnapshot
	promos    *promo.StaticRegistry
	carts     *cartstore.Store
	orders    *ledger.MemoryLedger
	publisher *capturePublisher
	manager   *Manager
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLedger(t, nil)
}

// newFixtureWithLedger lets a test interpose on the ledger the manager
// talks to while assertions still run against the backing memory ledger.
func newFixtureWithLedger(t *testing.T, wrap func(*ledger.MemoryLedger) ledger.Ledger) *fixture {
	t.Helper()

	inv := inventory.NewMemory()
	inv.Put("prod-hoodie", 4599, 10)
	inv.Put("prod-sneakers", 3299, 5)

	promos := promo.NewStatic(domain.PromoCode{Code: "save10", DiscountPercent: 10, Active: true})
	locks := ownerlock.New()
	carts := cartstore.New(locks, inv, promos, 2*time.Second)
	orders := ledger.NewMemory()
	var managerLedger ledger.Ledger = orders
	if wrap != nil {
		managerLedger = wrap(orders)
	}
	publisher := newCapturePublisher()

	pricer := pricing.New(pricing.Config{
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
		FlatShippingFee:       decimal.RequireFromString("5.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
	})

	manager := NewManager(Deps{
		Locks:           locks,
		Carts:           carts,
		Inventory:       inv,
		Pricer:          pricer,
		Promos:          promos,
		Orders:          managerLedger,
		Publisher:       publisher,
		UpstreamTimeout: 2 * time.Second,
		SessionTTL:      30 * time.Minute,
	})

	return &fixture{inv: inv, promos: promos, carts: carts, orders: orders, publisher: publisher, manager: manager}
}

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		Phone:       "+15550100",
		AddressLine: "1 Analytical Way",
		City:        "London",
		State:       "LDN",
		PostalCode:  "E1 6AN",
		Country:     "GB",
	}
}

func cardPayment() domain.PaymentSelection {
	return domain.PaymentSelection{
		Method:     domain.PaymentCard,
		CardNumber: "4242424242424242",
		CardExpiry: "12/30",
	}
}

func (f *fixture) fillCart(t *testing.T, ownerID string) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), ownerID, "prod-hoodie", 1)
	require.NoError(t, err)
	_, err = f.carts.AddItem(context.Background(), ownerID, "prod-sneakers", 1)
	require.NoError(t, err)
}

func (f *fixture) toReview(t *testing.T, ownerID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.manager.Start(ctx, ownerID)
	require.NoError(t, err)
	_, err = f.manager.SubmitShipping(ctx, ownerID, validAddress())
	require.NoError(t, err)
	session, err := f.manager.SubmitPayment(ctx, ownerID, cardPayment())
	require.NoError(t, err)
	require.Equal(t, domain.StepReview, session.Step)
}

func TestStartRequiresNonEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Start(context.Background(), "o1")
	assert.ErrorIs(t, err, domain.ErrCartEmpty)
}

func TestStartSnapshotsCart(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")

	session, err := f.manager.Start(context.Background(), "o1")
	require.NoError(t, err)

	assert.Equal(t, domain.StepShipping, session.Step)
	assert.NotEmpty(t, session.ID)
	assert.NotEmpty(t, session.IdempotencyKey)
	require.Len(t, session.Cart.Lines, 2)

	// Cart mutation after start does not leak into the snapshot.
	_, err = f.carts.UpdateQuantity(context.Background(), "o1", "prod-hoodie", 5)
	require.NoError(t, err)
	got, err := f.manager.Session("o1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Cart.Line("prod-hoodie").Quantity)
}

func TestStartReplacesPriorSession(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	ctx := context.Background()

	first, err := f.manager.Start(ctx, "o1")
	require.NoError(t, err)
	second, err := f.manager.Start(ctx, "o1")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	got, err := f.manager.Session("o1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestSessionNoneActive(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Session("o1")
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestSessionExpires(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	f.manager.sessionTTL = -time.Minute

	_, err := f.manager.Start(context.Background(), "o1")
	require.NoError(t, err)

	_, err = f.manager.Session("o1")
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestSubmitShippingValidation(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	ctx := context.Background()

	_, err := f.manager.Start(ctx, "o1")
	require.NoError(t, err)

	addr := validAddress()
	addr.Email = "not-an-email"
	addr.City = ""

	_, err = f.manager.SubmitShipping(ctx, "o1", addr)
	require.ErrorIs(t, err, domain.ErrIncompleteShippingInfo)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be a valid email address", verr.Fields["email"])
	assert.Equal(t, "is required", verr.Fields["city"])

	// Session stays at shipping.
	session, err := f.manager.Session("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepShipping, session.Step)
}

func TestSubmitPaymentValidation(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	ctx := context.Background()

	_, err := f.manager.Start(ctx, "o1")
	require.NoError(t, err)
	_, err = f.manager.SubmitShipping(ctx, "o1", validAddress())
	require.NoError(t, err)

	_, err = f.manager.SubmitPayment(ctx, "o1", domain.PaymentSelection{Method: domain.PaymentCard})
	require.ErrorIs(t, err, domain.ErrInvalidPaymentSelection)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "cardNumber")
	assert.Contains(t, verr.Fields, "cardExpiry")
}

func TestSubmitPaymentUnknownMethod(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	ctx := context.Background()

	_, err := f.manager.Start(ctx, "o1")
	require.NoError(t, err)
	_, err = f.manager.SubmitShipping(ctx, "o1", validAddress())
	require.NoError(t, err)

	_, err = f.manager.SubmitPayment(ctx, "o1", domain.PaymentSelection{Method: "crypto"})
	require.ErrorIs(t, err, domain.ErrInvalidPaymentSelection)
}

func TestStepOrderEnforced(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	ctx := context.Background()

	_, err := f.manager.Start(ctx, "o1")
	require.NoError(t, err)

	// Payment before shipping is rejected.
	_, err = f.manager.SubmitPayment(ctx, "o1", cardPayment())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Placing from shipping is rejected.
	_, err = f.manager.PlaceOrder(ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestBack(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	f.toReview(t, "o1")

	session, err := f.manager.Back("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepPayment, session.Step)

	session, err = f.manager.Back("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepShipping, session.Step)

	_, err = f.manager.Back("o1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestBackPreservesEnteredData(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	f.toReview(t, "o1")
	ctx := context.Background()

	_, err := f.manager.Back("o1")
	require.NoError(t, err)

	// Moving forward again does not require re-entering shipping.
	session, err := f.manager.SubmitPayment(ctx, "o1", cardPayment())
	require.NoError(t, err)
	require.NotNil(t, session.Shipping)
	assert.Equal(t, "Ada", session.Shipping.FirstName)
}

func TestPlaceOrderHappyPath(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	f.toReview(t, "o1")

	order, err := f.manager.PlaceOrder(context.Background(), "o1")
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-\d{4}-\d{6}$`, order.Number)
	assert.Equal(t, "o1", order.OwnerID)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, int64(8530), order.Totals.TotalCents)
	assert.Equal(t, "Card ending 4242", order.PaymentMethodLabel)

	// Cart cleared, session gone, event out.
	assert.True(t, f.carts.Get("o1").IsEmpty())
	_, err = f.manager.Session("o1")
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	event := f.publisher.wait(t)
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, int64(8530), event.TotalCents)
}

func TestPlaceOrderStockDropped(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	f.toReview(t, "o1")

	f.inv.SetStock("prod-hoodie", 0)

	_, err := f.manager.PlaceOrder(context.Background(), "o1")
	require.ErrorIs(t, err, domain.ErrStockChangedDuringCheckout)

	var serr *domain.StockError
	require.ErrorAs(t, err, &serr)
	require.Len(t, serr.Issues, 1)
	assert.Equal(t, "prod-hoodie", serr.Issues[0].ProductID)

	// Nothing committed: session stays at review, cart untouched, no order.
	session, err := f.manager.Session("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepReview, session.Step)
	assert.False(t, f.carts.Get("o1").IsEmpty())
	assert.Equal(t, 0, f.orders.Count())
}

func TestPlaceOrderRetryAfterUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	f.toReview(t, "o1")
	ctx := context.Background()

	f.orders.FailCreate = errors.New("ledger down")

	_, err := f.manager.PlaceOrder(ctx, "o1")
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	// Session survives the failure so the shopper can retry.
	session, err := f.manager.Session("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepReview, session.Step)
	assert.False(t, f.carts.Get("o1").IsEmpty())

	order, err := f.manager.PlaceOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.orders.Count())
	assert.True(t, f.carts.Get("o1").IsEmpty())
	f.publisher.wait(t)
	assert.NotEmpty(t, order.Number)
}

func TestPlaceOrderDropsExpiredPromo(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	_, err := f.carts.ApplyPromoCode(context.Background(), "o1", "save10")
	require.NoError(t, err)
	f.toReview(t, "o1")

	f.promos.Deactivate("save10")

	order, err := f.manager.PlaceOrder(context.Background(), "o1")
	require.NoError(t, err)

	// Discount is gone; the order prices as if no code was applied.
	assert.Equal(t, int64(0), order.Totals.DiscountCents)
	assert.Equal(t, int64(8530), order.Totals.TotalCents)
}

func TestPlaceOrderAppliesLivePromo(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	_, err := f.carts.ApplyPromoCode(context.Background(), "o1", "save10")
	require.NoError(t, err)
	f.toReview(t, "o1")

	order, err := f.manager.PlaceOrder(context.Background(), "o1")
	require.NoError(t, err)

	assert.Equal(t, int64(790), order.Totals.DiscountCents)
	assert.Equal(t, int64(7677), order.Totals.TotalCents)
}

// commitThenFailLedger commits the order but reports failure once,
// modelling a create whose response is lost to a timeout.
type commitThenFailLedger struct {
	*ledger.MemoryLedger
	failNext bool
}

func (l *commitThenFailLedger) Create(ctx context.Context, key string, draft domain.OrderDraft) (*domain.Order, bool, error) {
	order, created, err := l.MemoryLedger.Create(ctx, key, draft)
	if err == nil && l.failNext {
		l.failNext = false
		return nil, false, context.DeadlineExceeded
	}
	return order, created, err
}

func TestPlaceOrderRetryAfterCommitTimeout(t *testing.T) {
	wrapper := &commitThenFailLedger{failNext: true}
	f := newFixtureWithLedger(t, func(mem *ledger.MemoryLedger) ledger.Ledger {
		wrapper.MemoryLedger = mem
		return wrapper
	})
	f.fillCart(t, "o1")
	f.toReview(t, "o1")
	ctx := context.Background()

	_, err := f.manager.PlaceOrder(ctx, "o1")
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	// The order committed even though the call reported failure.
	require.Equal(t, 1, f.orders.Count())
	session, err := f.manager.Session("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepReview, session.Step)

	// The retry resolves to the committed order and still clears the cart
	// and publishes, even though it wrote nothing new.
	order, err := f.manager.PlaceOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.orders.Count())
	assert.True(t, f.carts.Get("o1").IsEmpty())
	event := f.publisher.wait(t)
	assert.Equal(t, order.ID, event.OrderID)
}

// Cart reads may go through a warmed cache, but placement re-validates
// against the authoritative snapshot and must see drift inside the
// cache's TTL.
func TestPlaceOrderSeesDriftBehindCartCache(t *testing.T) {
	source := inventory.NewMemory()
	source.Put("prod-hoodie", 4599, 10)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cached := inventory.NewCached(source, client, time.Minute)

	locks := ownerlock.New()
	promos := promo.NewStatic()
	carts := cartstore.New(locks, cached, promos, 2*time.Second)
	manager := NewManager(Deps{
		Locks:     locks,
		Carts:     carts,
		Inventory: source,
		Pricer: pricing.New(pricing.Config{
			FreeShippingThreshold: decimal.RequireFromString("50.00"),
			FlatShippingFee:       decimal.RequireFromString("5.99"),
			TaxRate:               decimal.RequireFromString("0.08"),
		}),
		Promos:          promos,
		Orders:          ledger.NewMemory(),
		Publisher:       newCapturePublisher(),
		UpstreamTimeout: 2 * time.Second,
		SessionTTL:      30 * time.Minute,
	})

	ctx := context.Background()
	_, err := carts.AddItem(ctx, "o1", "prod-hoodie", 2)
	require.NoError(t, err)
	_, err = manager.Start(ctx, "o1")
	require.NoError(t, err)
	_, err = manager.SubmitShipping(ctx, "o1", validAddress())
	require.NoError(t, err)
	_, err = manager.SubmitPayment(ctx, "o1", cardPayment())
	require.NoError(t, err)

	source.SetStock("prod-hoodie", 0)

	// The cache still serves the stale availability.
	av, err := cached.Available(ctx, "prod-hoodie")
	require.NoError(t, err)
	require.Equal(t, 10, av.MaxQuantity)

	_, err = manager.PlaceOrder(ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrStockChangedDuringCheckout)
}

func TestAbandon(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "o1")
	f.toReview(t, "o1")

	f.manager.Abandon("o1")

	_, err := f.manager.Session("o1")
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
	// The cart is untouched.
	assert.False(t, f.carts.Get("o1").IsEmpty())

	// Abandoning again is a no-op.
	f.manager.Abandon("o1")
}
