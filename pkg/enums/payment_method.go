package enums

import "fmt"

// PaymentMethod describes how a shopper settles an order.
type PaymentMethod string

const (
	PaymentMethodOrangeMoney  PaymentMethod = "orange-money"
	PaymentMethodMTNMobile    PaymentMethod = "mtn-mobile"
	PaymentMethodBankTransfer PaymentMethod = "bank-transfer"
	PaymentMethodCashDelivery PaymentMethod = "cash-delivery"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodOrangeMoney,
	PaymentMethodMTNMobile,
	PaymentMethodBankTransfer,
	PaymentMethodCashDelivery,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsMobileMoney reports whether the method needs a subscriber number.
func (p PaymentMethod) IsMobileMoney() bool {
	return p == PaymentMethodOrangeMoney || p == PaymentMethodMTNMobile
}

// InitialOrderStatus is the status an order takes when paid with this method.
func (p PaymentMethod) InitialOrderStatus() OrderStatus {
	if p == PaymentMethodBankTransfer {
		return OrderStatusPending
	}
	return OrderStatusConfirmed
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
