package pricing

import (
	"github.com/shopspring/decimal"

	"checkout-engine/internal/domain"
)

// Config carries the pricing constants. They are business configuration,
// not hardcoded policy.
type Config struct {
	// Shipping is free when the subtotal strictly exceeds this threshold.
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

// Totals is the computed price breakdown for one cart snapshot.
//
// Rounding policy: intermediates keep full precision; Total is computed
// from the unrounded intermediates and then rounded half-even to two
// decimal places. Each component is also rounded half-even to two places
// for reporting, so Subtotal-Discount+Shipping+Tax may differ from Total
// by at most one cent.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ToOrderTotals converts the rounded breakdown to minor units for
// persistence.
func (t Totals) ToOrderTotals() domain.OrderTotals {
	return domain.OrderTotals{
		SubtotalCents: t.Subtotal.Shift(2).IntPart(),
		DiscountCents: t.Discount.Shift(2).IntPart(),
		ShippingCents: t.Shipping.Shift(2).IntPart(),
		TaxCents:      t.Tax.Shift(2).IntPart(),
		TotalCents:    t.Total.Shift(2).IntPart(),
	}
}

// Engine computes order totals from a cart snapshot. It is a pure
// function of the snapshot and the configured constants.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

var oneHundred = decimal.NewFromInt(100)

// ComputeTotals prices a cart snapshot:
//
//	subtotal = Σ(unit_price × quantity)
//	discount = subtotal × promo% / 100
//	shipping = 0 if subtotal > threshold, else the flat fee
//	tax      = (subtotal − discount) × rate
//	total    = subtotal − discount + shipping + tax
//
// An empty cart yields zero for everything except shipping, which is the
// flat fee since a zero subtotal is under the threshold.
func (e *Engine) ComputeTotals(cart domain.Cart) Totals {
	var subtotalCents int64
	for _, line := range cart.Lines {
		subtotalCents += line.TotalCents()
	}
	subtotal := decimal.New(subtotalCents, -2)

	discount := decimal.Zero
	if cart.Promo != nil && cart.Promo.Active && cart.Promo.DiscountPercent > 0 {
		discount = subtotal.Mul(decimal.NewFromInt(cart.Promo.DiscountPercent)).Div(oneHundred)
	}

	shipping := e.cfg.FlatShippingFee
	if subtotal.GreaterThan(e.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(e.cfg.TaxRate)

	total := taxable.Add(shipping).Add(tax)

	return Totals{
		Subtotal: subtotal.RoundBank(2),
		Discount: discount.RoundBank(2),
		Shipping: shipping.RoundBank(2),
		Tax:      tax.RoundBank(2),
		Total:    total.RoundBank(2),
	}
}
