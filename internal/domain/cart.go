package domain

import "time"

// Cart is the authoritative set of line items for one shopper. A cart is
// created lazily on the first add and cleared when an order is placed.
type Cart struct {
	OwnerID   string     `json:"ownerId"`
	Lines     []LineItem `json:"lineItems"`
	Promo     *PromoCode `json:"promoCode,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// LineItem is one product-quantity pairing within a cart. Unit price and
// max quantity are snapshots taken from the catalog at add time.
type LineItem struct {
	ProductID      string    `json:"productId"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	MaxQuantity    int       `json:"maxQuantity"`
	AddedAt        time.Time `json:"addedAt"`
}

// TotalCents returns the line subtotal in minor units.
func (l LineItem) TotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// Line returns a pointer to the line for productID, or nil.
func (c *Cart) Line(productID string) *LineItem {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// IsEmpty reports whether the cart has no line items.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clone returns a deep copy; snapshots taken at checkout start must not
// observe later cart mutation.
func (c *Cart) Clone() Cart {
	out := Cart{
		OwnerID:   c.OwnerID,
		UpdatedAt: c.UpdatedAt,
	}
	if len(c.Lines) > 0 {
		out.Lines = make([]LineItem, len(c.Lines))
		copy(out.Lines, c.Lines)
	}
	if c.Promo != nil {
		promo := *c.Promo
		out.Promo = &promo
	}
	return out
}
