package enums

import "fmt"

// PaymentMode selects how the shopper pays for an order. It is immutable
// after the order is created.
type PaymentMode string

const (
	PaymentModeCOD  PaymentMode = "cod"
	PaymentModeUPI  PaymentMode = "upi"
	PaymentModeCard PaymentMode = "card"
)

var validPaymentModes = []PaymentMode{
	PaymentModeCOD,
	PaymentModeUPI,
	PaymentModeCard,
}

// String implements fmt.Stringer.
func (m PaymentMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMode.
func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// RequiresGateway reports whether the mode settles through the payment gateway.
func (m PaymentMode) RequiresGateway() bool {
	return m != PaymentModeCOD
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
