package controllers

import (
	"context"
	"net/http"

	"github.com/toolshop/storefront/api/responses"
	"github.com/toolshop/storefront/api/validators"
	"github.com/toolshop/storefront/internal/checkout"
	"github.com/toolshop/storefront/pkg/enums"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/money"
)

type checkoutResponse struct {
	checkout.View
	SubtotalLabel string `json:"subtotal_label"`
	ShippingLabel string `json:"shipping_label"`
	TotalLabel    string `json:"total_label"`
}

func newCheckoutResponse(m *checkout.Machine) checkoutResponse {
	view := m.Snapshot()
	return checkoutResponse{
		View:          view,
		SubtotalLabel: money.Format(view.Subtotal),
		ShippingLabel: money.Format(view.Shipping),
		TotalLabel:    money.Format(view.Total),
	}
}

type selectMethodRequest struct {
	Method string `json:"method" validate:"required,oneof=orange-money mtn-mobile bank-transfer cash-delivery"`
}

type detailsRequest struct {
	Phone string `json:"phone" validate:"max=32"`
}

type detailsResponse struct {
	Valid    bool             `json:"valid"`
	Checkout checkoutResponse `json:"checkout"`
}

func CheckoutGet(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutResponse(sess.Checkout))
	}
}

// CheckoutStep adapts a machine transition without a request body.
func CheckoutStep(step func(m *checkout.Machine, ctx context.Context) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := step(sess.Checkout, r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutResponse(sess.Checkout))
	}
}

func CheckoutOpen(logg *logger.Logger) http.HandlerFunc {
	return CheckoutStep((*checkout.Machine).Open, logg)
}

func CheckoutProceed(logg *logger.Logger) http.HandlerFunc {
	return CheckoutStep((*checkout.Machine).Proceed, logg)
}

// CheckoutConfirm submits the payment. The response reports the submitting
// state; the outcome is read back with GET /checkout.
func CheckoutConfirm(logg *logger.Logger) http.HandlerFunc {
	return CheckoutStep((*checkout.Machine).Confirm, logg)
}

func CheckoutRetry(logg *logger.Logger) http.HandlerFunc {
	return CheckoutStep((*checkout.Machine).Retry, logg)
}

func CheckoutClose(logg *logger.Logger) http.HandlerFunc {
	return CheckoutStep(func(m *checkout.Machine, ctx context.Context) error {
		m.Close(ctx)
		return nil
	}, logg)
}

func CheckoutSelectMethod(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload selectMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sess.Checkout.SelectMethod(r.Context(), enums.PaymentMethod(payload.Method)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutResponse(sess.Checkout))
	}
}

// CheckoutDetails records typed payment details and reports validity, the
// way the form re-validates on every keystroke.
func CheckoutDetails(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload detailsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		valid, err := sess.Checkout.UpdateDetails(r.Context(), checkout.Details{Phone: payload.Phone})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detailsResponse{Valid: valid, Checkout: newCheckoutResponse(sess.Checkout)})
	}
}
