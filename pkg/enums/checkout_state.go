package enums

// CheckoutState is a step of the payment flow.
type CheckoutState string

const (
	CheckoutStateIdle                    CheckoutState = "idle"
	CheckoutStateReviewingCart           CheckoutState = "reviewing_cart"
	CheckoutStateAwaitingMethodSelection CheckoutState = "awaiting_method_selection"
	CheckoutStateAwaitingMethodDetails   CheckoutState = "awaiting_method_details"
	CheckoutStateSubmitting              CheckoutState = "submitting"
	CheckoutStateConfirmed               CheckoutState = "confirmed"
	CheckoutStateFailed                  CheckoutState = "failed"
)

// String implements fmt.Stringer.
func (s CheckoutState) String() string {
	return string(s)
}

// IsTerminal reports whether the flow can only be left by closing it.
func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateConfirmed
}

// AcceptsDetails reports whether method selection and details may be edited.
func (s CheckoutState) AcceptsDetails() bool {
	switch s {
	case CheckoutStateAwaitingMethodSelection, CheckoutStateAwaitingMethodDetails, CheckoutStateFailed:
		return true
	}
	return false
}
