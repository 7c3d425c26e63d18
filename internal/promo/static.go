package promo

import (
	"context"
	"strings"
	"sync"

	"checkout-engine/internal/domain"
)

// StaticRegistry is an in-memory Registry for tests and local development.
type StaticRegistry struct {
	mu    sync.RWMutex
	codes map[string]domain.PromoCode
}

func NewStatic(codes ...domain.PromoCode) *StaticRegistry {
	r := &StaticRegistry{codes: make(map[string]domain.PromoCode, len(codes))}
	for _, c := range codes {
		r.codes[strings.ToLower(c.Code)] = c
	}
	return r
}

// Deactivate flips a code inactive, modelling a promo expiring mid-flow.
func (r *StaticRegistry) Deactivate(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(code)
	if c, ok := r.codes[key]; ok {
		c.Active = false
		r.codes[key] = c
	}
}

func (r *StaticRegistry) Lookup(_ context.Context, code string) (*domain.PromoCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codes[strings.ToLower(strings.TrimSpace(code))]
	if !ok || !c.Active {
		return nil, domain.ErrInvalidPromoCode
	}
	out := c
	return &out, nil
}
