package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity indicates a requested quantity below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrOutOfStock indicates the product has no available stock.
	ErrOutOfStock = errors.New("product out of stock")

	// ErrQuantityExceedsStock indicates the requested (or merged) quantity
	// is above the available stock.
	ErrQuantityExceedsStock = errors.New("quantity exceeds available stock")

	// ErrInvalidPromoCode indicates an unknown or inactive promo code.
	ErrInvalidPromoCode = errors.New("invalid promo code")

	// ErrCartEmpty indicates checkout was started on an empty cart.
	ErrCartEmpty = errors.New("cart is empty")

	// ErrNoActiveSession indicates no live checkout session for the owner.
	ErrNoActiveSession = errors.New("no active checkout session")

	// ErrInvalidTransition indicates a checkout operation invoked at the
	// wrong step.
	ErrInvalidTransition = errors.New("operation not allowed at current checkout step")

	// ErrStockChangedDuringCheckout indicates stock drifted between
	// checkout start and placement; the session stays at review.
	ErrStockChangedDuringCheckout = errors.New("stock changed during checkout")

	// ErrUpstreamUnavailable indicates an inventory or ledger call timed
	// out or failed; the caller may retry with the same idempotency key.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidStatusTransition indicates a fulfillment status move the
	// transition table disallows.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")

	// ErrIncompleteShippingInfo indicates missing or malformed shipping
	// address fields.
	ErrIncompleteShippingInfo = errors.New("incomplete shipping info")

	// ErrInvalidPaymentSelection indicates an unsupported payment method
	// or missing method-specific fields.
	ErrInvalidPaymentSelection = errors.New("invalid payment selection")
)

// ValidationError pairs a taxonomy sentinel with the offending fields.
type ValidationError struct {
	Err    error
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return e.Err.Error() + ": " + e.Fields.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// FieldErrors carries per-field validation failures so callers can
// highlight the offending inputs.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for name := range f {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, name := range fields {
		parts = append(parts, name+": "+f[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StockIssue identifies one cart line that failed stock re-validation.
type StockIssue struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	InStock   bool   `json:"inStock"`
}

// StockError wraps ErrStockChangedDuringCheckout with the offending lines.
type StockError struct {
	Issues []StockIssue
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v: %d line(s) affected", ErrStockChangedDuringCheckout, len(e.Issues))
}

func (e *StockError) Unwrap() error { return ErrStockChangedDuringCheckout }
