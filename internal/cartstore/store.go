package cartstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"checkout-engine/internal/domain"
	"checkout-engine/internal/inventory"
	"checkout-engine/internal/ownerlock"
	"checkout-engine/internal/promo"
	"github.com/rs/zerolog/log"
)

// Store owns the authoritative cart state, one cart per shopper. Carts are
// created lazily on first add and destroyed on clear. Every mutation for
// one owner runs under that owner's lock, shared with the checkout
// manager, so concurrent requests from the same shopper queue instead of
// racing.
type Store struct {
	locks           *ownerlock.Registry
	inv             inventory.Snapshot
	promos          promo.Registry
	upstreamTimeout time.Duration

	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func New(locks *ownerlock.Registry, inv inventory.Snapshot, promos promo.Registry, upstreamTimeout time.Duration) *Store {
	return &Store{
		locks:           locks,
		inv:             inv,
		promos:          promos,
		upstreamTimeout: upstreamTimeout,
		carts:           make(map[string]*domain.Cart),
	}
}

// AddItem validates quantity against live availability and either inserts
// a new line with a price snapshot or merges into the existing line. A
// merged quantity is clamped to the available stock; a brand-new line
// requesting more than stock is rejected outright.
func (s *Store) AddItem(ctx context.Context, ownerID, productID string, quantity int) (domain.Cart, error) {
	if quantity < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	release := s.locks.Acquire(ownerID)
	defer release()

	av, err := s.availability(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	if !av.InStock {
		return domain.Cart{}, domain.ErrOutOfStock
	}

	cart := s.cart(ownerID)
	line := cart.Line(productID)
	if line == nil {
		if quantity > av.MaxQuantity {
			return domain.Cart{}, domain.ErrQuantityExceedsStock
		}
		cart.Lines = append(cart.Lines, domain.LineItem{
			ProductID:      productID,
			Quantity:       quantity,
			UnitPriceCents: av.UnitPriceCents,
			MaxQuantity:    av.MaxQuantity,
			AddedAt:        time.Now().UTC(),
		})
	} else {
		merged := line.Quantity + quantity
		if merged > av.MaxQuantity {
			merged = av.MaxQuantity
		}
		// Unit price stays snapshotted from the first add.
		line.Quantity = merged
		line.MaxQuantity = av.MaxQuantity
	}
	cart.UpdatedAt = time.Now().UTC()

	return cart.Clone(), nil
}

// UpdateQuantity sets the line to an explicit quantity after the same
// stock checks as AddItem. Requests below 1 are rejected; callers wanting
// removal must use RemoveItem. On rejection the existing quantity is
// unchanged.
func (s *Store) UpdateQuantity(ctx context.Context, ownerID, productID string, quantity int) (domain.Cart, error) {
	if quantity < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	release := s.locks.Acquire(ownerID)
	defer release()

	cart := s.cart(ownerID)
	line := cart.Line(productID)
	if line == nil {
		return domain.Cart{}, domain.ErrNotFound
	}

	av, err := s.availability(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	if !av.InStock {
		return domain.Cart{}, domain.ErrOutOfStock
	}
	if quantity > av.MaxQuantity {
		return domain.Cart{}, domain.ErrQuantityExceedsStock
	}

	line.Quantity = quantity
	line.MaxQuantity = av.MaxQuantity
	cart.UpdatedAt = time.Now().UTC()

	return cart.Clone(), nil
}

// RemoveItem deletes the line for productID. It always succeeds; removing
// an absent line is a no-op. The removed line is returned for caller
// notification, nil when nothing was removed.
func (s *Store) RemoveItem(ownerID, productID string) (*domain.LineItem, domain.Cart) {
	release := s.locks.Acquire(ownerID)
	defer release()

	cart := s.cart(ownerID)
	for i := range cart.Lines {
		if cart.Lines[i].ProductID == productID {
			removed := cart.Lines[i]
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			cart.UpdatedAt = time.Now().UTC()
			return &removed, cart.Clone()
		}
	}
	return nil, cart.Clone()
}

// ApplyPromoCode resolves the code case-insensitively and attaches it to
// the cart, replacing any prior code. Only one promo is active at a time.
func (s *Store) ApplyPromoCode(ctx context.Context, ownerID, code string) (domain.Cart, error) {
	release := s.locks.Acquire(ownerID)
	defer release()

	lookupCtx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()

	p, err := s.promos.Lookup(lookupCtx, code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPromoCode) {
			return domain.Cart{}, domain.ErrInvalidPromoCode
		}
		return domain.Cart{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	cart := s.cart(ownerID)
	cart.Promo = p
	cart.UpdatedAt = time.Now().UTC()

	return cart.Clone(), nil
}

// Get returns a copy of the owner's cart for display; an absent cart reads
// as empty.
func (s *Store) Get(ownerID string) domain.Cart {
	release := s.locks.Acquire(ownerID)
	defer release()
	return s.cart(ownerID).Clone()
}

// Snapshot returns an immutable copy for checkout initiation. An empty
// cart cannot enter checkout.
func (s *Store) Snapshot(ownerID string) (domain.Cart, error) {
	release := s.locks.Acquire(ownerID)
	defer release()
	return s.SnapshotLocked(ownerID)
}

// SnapshotLocked is Snapshot for callers already holding the owner's lock.
func (s *Store) SnapshotLocked(ownerID string) (domain.Cart, error) {
	cart := s.cart(ownerID)
	if cart.IsEmpty() {
		return domain.Cart{}, domain.ErrCartEmpty
	}
	return cart.Clone(), nil
}

// ClearLocked removes all lines and the promo code. The caller must hold
// the owner's lock; order placement clears the cart in the same critical
// section that commits the order.
func (s *Store) ClearLocked(ownerID string) {
	s.mu.Lock()
	delete(s.carts, ownerID)
	s.mu.Unlock()
	log.Debug().Str("owner_id", ownerID).Msg("cartstore: cart cleared")
}

// cart returns the live cart for ownerID, creating it lazily. The caller
// must hold the owner's lock.
func (s *Store) cart(ownerID string) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[ownerID]
	if !ok {
		c = &domain.Cart{OwnerID: ownerID}
		s.carts[ownerID] = c
	}
	return c
}

func (s *Store) availability(ctx context.Context, productID string) (inventory.Availability, error) {
	avCtx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()

	av, err := s.inv.Available(avCtx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return inventory.Availability{}, domain.ErrNotFound
		}
		return inventory.Availability{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return av, nil
}
