package checkout

import (
	"context"
	"errors"

	"github.com/toolshop/storefront/internal/notify"
	"github.com/toolshop/storefront/internal/orders"
	"github.com/toolshop/storefront/internal/session"
	"github.com/toolshop/storefront/pkg/enums"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
)

// complete runs when the processing delay elapses. gen ties the callback to
// the Confirm that scheduled it; a Close or Open in between makes it a no-op.
// The order is built from the cart read before charging, and only those
// quantities leave the cart afterwards.
func (m *Machine) complete(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.state != enums.CheckoutStateSubmitting {
		m.mu.Unlock()
		return
	}
	method := m.method
	phone := m.phone
	started := m.startedAt
	lines := m.cart.CartLines()
	m.mu.Unlock()

	ctx = m.logg.WithFields(ctx, map[string]any{"method": method.String(), "items": len(lines)})

	if len(lines) == 0 {
		m.fail(ctx, gen, method, pkgerrors.New(pkgerrors.CodeNoItemsToCheckout, "cart emptied before payment completed"))
		return
	}

	subtotal := session.LinesTotal(lines)
	chargeErr := m.gateway.Charge(ctx, Charge{Method: method, Amount: subtotal + m.shipping, Phone: phone})
	m.metrics.ObservePayment(method.String(), outcome(chargeErr), m.now().Sub(started))
	if chargeErr != nil {
		m.fail(ctx, gen, method, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, chargeErr, "payment failed"))
		return
	}

	m.mu.Lock()
	if gen != m.generation || m.state != enums.CheckoutStateSubmitting {
		m.mu.Unlock()
		m.logg.Info(ctx, "payment settled after checkout was closed")
		return
	}
	draft := orders.Order{
		Items:    lines,
		Subtotal: subtotal,
		Shipping: m.shipping,
		Total:    subtotal + m.shipping,
		Method:   method,
	}
	if method.IsMobileMoney() {
		draft.Payment.Phone = phone
	}
	order, err := m.orders.Append(ctx, draft)
	if err != nil && !pkgerrors.IsPersistenceFailure(err) {
		m.mu.Unlock()
		m.fail(ctx, gen, method, err)
		return
	}
	if err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "order_id", order.ID), "order recorded in memory only")
	}
	if clearErr := m.cart.RemoveLines(ctx, lines); clearErr != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", clearErr.Error()), "remove ordered lines from cart")
	}
	m.state = enums.CheckoutStateConfirmed
	m.timer = nil
	m.lastOrder = &order
	m.message = ConfirmationMessage(method, order.ID)
	msg := m.message
	m.mu.Unlock()

	m.logg.Info(m.logg.WithField(ctx, "order_id", order.ID), "checkout confirmed")
	m.transitioned(ctx, enums.CheckoutStateSubmitting, enums.CheckoutStateConfirmed)
	m.sink.Notify(ctx, notify.EventCheckoutConfirmed, notify.Payload{
		Level:   notify.LevelSuccess,
		Message: msg,
		Data: map[string]any{
			"order_id": order.ID,
			"method":   method.String(),
			"status":   order.Status.String(),
			"total":    order.Total,
		},
	})
}

func (m *Machine) fail(ctx context.Context, gen uint64, method enums.PaymentMethod, cause error) {
	m.mu.Lock()
	if gen != m.generation || m.state != enums.CheckoutStateSubmitting {
		m.mu.Unlock()
		return
	}
	m.state = enums.CheckoutStateFailed
	m.timer = nil
	m.lastErr = cause
	m.message = failureMessage(method)
	msg := m.message
	m.mu.Unlock()

	m.logg.Error(ctx, "checkout failed", cause)
	m.transitioned(ctx, enums.CheckoutStateSubmitting, enums.CheckoutStateFailed)
	data := map[string]any{"method": method.String()}
	if typed := pkgerrors.As(cause); typed != nil {
		data["code"] = string(typed.Code())
	}
	m.sink.Notify(ctx, notify.EventCheckoutFailed, notify.Payload{
		Level:   notify.LevelError,
		Message: msg,
		Data:    data,
	})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrPaymentDeclined):
		return "declined"
	default:
		return "error"
	}
}
