package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"checkout-engine/internal/cartstore"
	"checkout-engine/internal/domain"
	"checkout-engine/internal/events"
	"checkout-engine/internal/inventory"
	"checkout-engine/internal/ledger"
	"checkout-engine/internal/ownerlock"
	"checkout-engine/internal/pricing"
	"checkout-engine/internal/promo"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// Manager drives checkout sessions through shipping, payment, review and
// placement. One session exists per owner at a time; the whole lifecycle
// runs under the owner's lock shared with the cart store, so checkout and
// cart mutation never interleave for one shopper.
type Manager struct {
	locks           *ownerlock.Registry
	carts           *cartstore.Store
	inv             inventory.Snapshot
	pricer          *pricing.Engine
	promos          promo.Registry
	orders          ledger.Ledger
	publisher       events.Publisher
	upstreamTimeout time.Duration
	sessionTTL      time.Duration

	mu       sync.Mutex
	sessions map[string]*domain.CheckoutSession
}

type Deps struct {
	Locks *ownerlock.Registry
	Carts *cartstore.Store

	// Inventory must be the authoritative snapshot, not a cached view:
	// placement re-validates every line against it, and a stale read here
	// lets an order through for stock that is already gone.
	Inventory inventory.Snapshot

	Pricer    *pricing.Engine
	Promos    promo.Registry
	Orders    ledger.Ledger
	Publisher events.Publisher

	UpstreamTimeout time.Duration
	SessionTTL      time.Duration
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		locks:           deps.Locks,
		carts:           deps.Carts,
		inv:             deps.Inventory,
		pricer:          deps.Pricer,
		promos:          deps.Promos,
		orders:          deps.Orders,
		publisher:       deps.Publisher,
		upstreamTimeout: deps.UpstreamTimeout,
		sessionTTL:      deps.SessionTTL,
		sessions:        make(map[string]*domain.CheckoutSession),
	}
}

// Start snapshots the owner's cart and opens a session at the shipping
// step, replacing any prior unfinished session. The snapshot is a copy;
// later cart mutation does not change it.
func (m *Manager) Start(_ context.Context, ownerID string) (domain.CheckoutSession, error) {
	release := m.locks.Acquire(ownerID)
	defer release()

	snapshot, err := m.carts.SnapshotLocked(ownerID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	sessionID, err := uuid.NewV4()
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("generate session id: %w", err)
	}
	idempotencyKey, err := uuid.NewV4()
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("generate idempotency key: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.CheckoutSession{
		ID:             sessionID.String(),
		OwnerID:        ownerID,
		Cart:           snapshot,
		Step:           domain.StepShipping,
		IdempotencyKey: idempotencyKey.String(),
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.sessionTTL),
	}

	m.mu.Lock()
	m.sessions[ownerID] = session
	m.mu.Unlock()

	log.Info().Str("owner_id", ownerID).Str("session_id", session.ID).Msg("checkout: session started")
	return cloneSession(session), nil
}

// Session returns a copy of the owner's live session.
func (m *Manager) Session(ownerID string) (domain.CheckoutSession, error) {
	release := m.locks.Acquire(ownerID)
	defer release()

	session, err := m.liveSession(ownerID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	return cloneSession(session), nil
}

// SubmitShipping validates the address and advances shipping -> payment.
// Validation failure keeps the session at shipping with field-level
// errors.
func (m *Manager) SubmitShipping(_ context.Context, ownerID string, addr domain.ShippingAddress) (domain.CheckoutSession, error) {
	release := m.locks.Acquire(ownerID)
	defer release()

	session, err := m.liveSession(ownerID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if session.Step != domain.StepShipping {
		return domain.CheckoutSession{}, domain.ErrInvalidTransition
	}

	if fields := validateShipping(addr); len(fields) > 0 {
		return domain.CheckoutSession{}, &domain.ValidationError{Err: domain.ErrIncompleteShippingInfo, Fields: fields}
	}

	session.Shipping = &addr
	session.Step = domain.StepPayment
	return cloneSession(session), nil
}

// SubmitPayment validates the payment selection and advances payment ->
// review. Only sessions with a completed shipping step can reach here.
func (m *Manager) SubmitPayment(_ context.Context, ownerID string, selection domain.PaymentSelection) (domain.CheckoutSession, error) {
	release := m.locks.Acquire(ownerID)
	defer release()

	session, err := m.liveSession(ownerID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if session.Step != domain.StepPayment {
		return domain.CheckoutSession{}, domain.ErrInvalidTransition
	}

	if fields := validatePayment(selection); len(fields) > 0 {
		return domain.CheckoutSession{}, &domain.ValidationError{Err: domain.ErrInvalidPaymentSelection, Fields: fields}
	}

	session.Payment = &selection
	session.Step = domain.StepReview
	return cloneSession(session), nil
}

// Back steps payment -> shipping or review -> payment. No other backward
// moves exist.
func (m *Manager) Back(ownerID string) (domain.CheckoutSession, error) {
	release := m.locks.Acquire(ownerID)
	defer release()

	session, err := m.liveSession(ownerID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	switch session.Step {
	case domain.StepPayment:
		session.Step = domain.StepShipping
	case domain.StepReview:
		session.Step = domain.StepPayment
	default:
		return domain.CheckoutSession{}, domain.ErrInvalidTransition
	}
	return cloneSession(session), nil
}

// PlaceOrder is the only transition with side effects beyond state. It
// re-validates every line against current inventory, recomputes totals
// under live pricing rules, and creates the order idempotently. On
// success the cart is cleared and OrderPlaced is published; a retry with
// the same session returns the existing order rather than writing a
// second one. Validation failures leave the session at review; a failed
// ledger call leaves the session intact for retry with the same key.
func (m *Manager) PlaceOrder(ctx context.Context, ownerID string) (*domain.Order, error) {
	release := m.locks.Acquire(ownerID)
	defer release()

	session, err := m.liveSession(ownerID)
	if err != nil {
		return nil, err
	}
	if session.Step != domain.StepReview {
		return nil, domain.ErrInvalidTransition
	}

	if err := m.revalidateStock(ctx, session.Cart); err != nil {
		return nil, err
	}

	cart, err := m.repriceCart(ctx, session.Cart)
	if err != nil {
		return nil, err
	}
	totals := m.pricer.ComputeTotals(cart)

	draft := domain.OrderDraft{
		OwnerID:            ownerID,
		Items:              cart.Lines,
		Totals:             totals.ToOrderTotals(),
		ShippingAddress:    *session.Shipping,
		PaymentMethodLabel: session.Payment.Label(),
	}

	createCtx, cancel := context.WithTimeout(ctx, m.upstreamTimeout)
	defer cancel()
	order, created, err := m.orders.Create(createCtx, session.IdempotencyKey, draft)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	// created is false on a retry whose first attempt committed but failed
	// to report back, so the clear and publish may still be owed. Clearing
	// an empty cart is a no-op and delivery is at-least-once.
	m.carts.ClearLocked(ownerID)
	m.publishOrderPlaced(order)

	session.Step = domain.StepPlaced
	m.mu.Lock()
	delete(m.sessions, ownerID)
	m.mu.Unlock()

	log.Info().
		Str("owner_id", ownerID).
		Str("order_id", order.ID).
		Str("order_number", order.Number).
		Bool("created", created).
		Msg("checkout: order placed")
	return order, nil
}

// Abandon discards the owner's session without touching the cart or the
// ledger. Abandoning when no session exists is a no-op.
func (m *Manager) Abandon(ownerID string) {
	release := m.locks.Acquire(ownerID)
	defer release()

	m.mu.Lock()
	delete(m.sessions, ownerID)
	m.mu.Unlock()
}

// revalidateStock re-fetches availability for every snapshot line.
// Quantities drift between snapshot time and placement, so the snapshot
// is advisory until this passes.
func (m *Manager) revalidateStock(ctx context.Context, cart domain.Cart) error {
	var issues []domain.StockIssue
	for _, line := range cart.Lines {
		avCtx, cancel := context.WithTimeout(ctx, m.upstreamTimeout)
		av, err := m.inv.Available(avCtx, line.ProductID)
		cancel()
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				issues = append(issues, domain.StockIssue{
					ProductID: line.ProductID,
					Requested: line.Quantity,
				})
				continue
			}
			return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		if !av.InStock || line.Quantity > av.MaxQuantity {
			issues = append(issues, domain.StockIssue{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: av.MaxQuantity,
				InStock:   av.InStock,
			})
		}
	}
	if len(issues) > 0 {
		return &domain.StockError{Issues: issues}
	}
	return nil
}

// repriceCart re-checks the snapshot's promo code against the live
// registry so a code expiring mid-flow no longer discounts the order.
func (m *Manager) repriceCart(ctx context.Context, snapshot domain.Cart) (domain.Cart, error) {
	cart := snapshot.Clone()
	if cart.Promo == nil {
		return cart, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, m.upstreamTimeout)
	defer cancel()

	p, err := m.promos.Lookup(lookupCtx, cart.Promo.Code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPromoCode) {
			log.Warn().Str("code", cart.Promo.Code).Msg("checkout: promo no longer valid, dropping discount")
			cart.Promo = nil
			return cart, nil
		}
		return domain.Cart{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	cart.Promo = p
	return cart, nil
}

func (m *Manager) publishOrderPlaced(order *domain.Order) {
	event := events.OrderPlaced{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		OwnerID:     order.OwnerID,
		TotalCents:  order.Totals.TotalCents,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := m.publisher.PublishOrderPlaced(ctx, event); err != nil {
			log.Error().Err(err).Str("order_id", event.OrderID).Msg("checkout: publish order placed failed")
		}
	}()
}

// liveSession returns the owner's session, lazily evicting expired ones.
// The caller must hold the owner's lock.
func (m *Manager) liveSession(ownerID string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[ownerID]
	if !ok {
		return nil, domain.ErrNoActiveSession
	}
	if session.Expired(time.Now().UTC()) {
		delete(m.sessions, ownerID)
		return nil, domain.ErrNoActiveSession
	}
	return session, nil
}

func cloneSession(s *domain.CheckoutSession) domain.CheckoutSession {
	out := *s
	out.Cart = s.Cart.Clone()
	if s.Shipping != nil {
		addr := *s.Shipping
		out.Shipping = &addr
	}
	if s.Payment != nil {
		sel := *s.Payment
		out.Payment = &sel
	}
	return out
}
