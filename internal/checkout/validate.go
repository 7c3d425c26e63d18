package checkout

import (
	"errors"
	"reflect"
	"strings"

	"checkout-engine/internal/domain"
	"github.com/go-playground/validator/v10"
)

var shippingValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their json names so the UI can highlight inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateShipping(addr domain.ShippingAddress) domain.FieldErrors {
	err := shippingValidator.Struct(addr)
	if err == nil {
		return nil
	}

	fields := make(domain.FieldErrors)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["shippingAddress"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "email":
			fields[fe.Field()] = "must be a valid email address"
		default:
			fields[fe.Field()] = "is required"
		}
	}
	return fields
}

func validatePayment(sel domain.PaymentSelection) domain.FieldErrors {
	fields := make(domain.FieldErrors)
	switch sel.Method {
	case domain.PaymentCard:
		if strings.TrimSpace(sel.CardNumber) == "" {
			fields["cardNumber"] = "is required"
		}
		if strings.TrimSpace(sel.CardExpiry) == "" {
			fields["cardExpiry"] = "is required"
		}
	case domain.PaymentExternalWallet:
		if strings.TrimSpace(sel.WalletProvider) == "" {
			fields["walletProvider"] = "is required"
		}
	case domain.PaymentBankTransfer:
		if strings.TrimSpace(sel.BankAccount) == "" {
			fields["bankAccount"] = "is required"
		}
		if strings.TrimSpace(sel.BankCode) == "" {
			fields["bankCode"] = "is required"
		}
	default:
		fields["method"] = "must be one of card, external_wallet, bank_transfer"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
