package domain

// PromoCode maps a case-insensitive code to a percentage discount.
// Codes are immutable once issued; the engine looks them up, never
// mutates them.
type PromoCode struct {
	Code            string `json:"code"`
	DiscountPercent int64  `json:"discountPercent"`
	Active          bool   `json:"active"`
}
