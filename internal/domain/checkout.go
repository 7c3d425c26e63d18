package domain

import "time"

// CheckoutStep is one state of the checkout state machine. Steps are
// strictly ordered; the only backward moves are the explicit "back"
// transitions from payment and review.
type CheckoutStep string

const (
	StepShipping CheckoutStep = "shipping"
	StepPayment  CheckoutStep = "payment"
	StepReview   CheckoutStep = "review"
	StepPlaced   CheckoutStep = "placed"
)

func (s CheckoutStep) String() string { return string(s) }

// ShippingAddress holds the required delivery fields collected during the
// shipping step. Validation tags drive field-level error reporting.
type ShippingAddress struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
	AddressLine string `json:"addressLine" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state" validate:"required"`
	PostalCode  string `json:"postalCode" validate:"required"`
	Country     string `json:"country" validate:"required"`
}

// PaymentMethod is the kind of payment the shopper selected.
type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "card"
	PaymentExternalWallet PaymentMethod = "external_wallet"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
)

// PaymentSelection is the shopper's payment choice plus the fields that
// method requires. The engine never charges; it only records the
// selection for the order.
type PaymentSelection struct {
	Method         PaymentMethod `json:"method"`
	CardNumber     string        `json:"cardNumber,omitempty"`
	CardExpiry     string        `json:"cardExpiry,omitempty"`
	WalletProvider string        `json:"walletProvider,omitempty"`
	BankAccount    string        `json:"bankAccount,omitempty"`
	BankCode       string        `json:"bankCode,omitempty"`
}

// Label is the human-readable payment method name persisted on orders.
func (p PaymentSelection) Label() string {
	switch p.Method {
	case PaymentCard:
		n := p.CardNumber
		if len(n) > 4 {
			n = n[len(n)-4:]
		}
		return "Card ending " + n
	case PaymentExternalWallet:
		return "Wallet (" + p.WalletProvider + ")"
	case PaymentBankTransfer:
		return "Bank transfer"
	default:
		return string(p.Method)
	}
}

// CheckoutSession carries one checkout attempt from shipping to placed.
// The cart snapshot is a copy taken at session start; mutating the live
// cart does not change it, but placement re-validates stock.
type CheckoutSession struct {
	ID             string            `json:"id"`
	OwnerID        string            `json:"ownerId"`
	Cart           Cart              `json:"cart"`
	Shipping       *ShippingAddress  `json:"shippingAddress,omitempty"`
	Payment        *PaymentSelection `json:"paymentSelection,omitempty"`
	Step           CheckoutStep      `json:"step"`
	IdempotencyKey string            `json:"idempotencyKey"`
	CreatedAt      time.Time         `json:"createdAt"`
	ExpiresAt      time.Time         `json:"expiresAt"`
}

// Expired reports whether the session has passed its abandonment deadline.
func (s *CheckoutSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
