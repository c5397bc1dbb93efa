package checkout

import (
	"fmt"
	"strings"

	"github.com/toolshop/storefront/pkg/enums"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
)

const (
	// PhoneLength is the subscriber number length accepted for mobile money.
	PhoneLength = 9
	// PhonePrefix is the leading digit of every accepted subscriber number.
	PhonePrefix = '6'
)

// FieldViolation describes one failed method-details rule.
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// NormalizePhone strips surrounding whitespace from a typed number.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// ValidPhone reports whether phone is 9 digits starting with 6.
func ValidPhone(phone string) bool {
	phone = NormalizePhone(phone)
	if len(phone) != PhoneLength || phone[0] != PhonePrefix {
		return false
	}
	for i := 0; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return false
		}
	}
	return true
}

// ValidateDetails checks the fields required by method. Bank transfer and
// cash on delivery need nothing.
func ValidateDetails(method enums.PaymentMethod, phone string) error {
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", method))
	}
	if !method.IsMobileMoney() {
		return nil
	}
	if ValidPhone(phone) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidMethodDetails, "mobile money number must be 9 digits starting with 6").WithDetails(map[string]any{
		"method":     method.String(),
		"violations": []FieldViolation{{Field: "phone", Rule: fmt.Sprintf("%d digits starting with %c", PhoneLength, PhonePrefix)}},
	})
}
