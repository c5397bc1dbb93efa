// Package checkout drives the simulated payment flow that turns a cart into
// a recorded order.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/toolshop/storefront/internal/notify"
	"github.com/toolshop/storefront/internal/orders"
	"github.com/toolshop/storefront/internal/session"
	pkgcheckout "github.com/toolshop/storefront/pkg/checkout"
	"github.com/toolshop/storefront/pkg/enums"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/metrics"
)

const (
	// DefaultShippingFee is the flat delivery charge added to every order.
	DefaultShippingFee int64 = 2500
	// DefaultProcessingDelay is how long the simulated gateway call takes.
	DefaultProcessingDelay = 3 * time.Second
)

// Cart is the part of the collection store the machine reads and settles.
type Cart interface {
	CartLines() []session.CartLine
	RemoveLines(ctx context.Context, lines []session.CartLine) error
}

// OrderLog records completed checkouts.
type OrderLog interface {
	Append(ctx context.Context, o orders.Order) (orders.Order, error)
}

// Params groups dependencies for the checkout machine.
type Params struct {
	Cart            Cart
	Orders          OrderLog
	Gateway         Gateway
	Scheduler       Scheduler
	Sink            notify.Sink
	Logger          *logger.Logger
	Metrics         *metrics.Storefront
	ShippingFee     int64
	ProcessingDelay time.Duration
	Clock           func() time.Time
}

// Details are the method-specific fields typed by the shopper.
type Details struct {
	Phone string `json:"phone"`
}

// View is the read model rendered by the checkout dialog.
type View struct {
	State          enums.CheckoutState `json:"state"`
	Method         enums.PaymentMethod `json:"method,omitempty"`
	Phone          string              `json:"phone,omitempty"`
	Valid          bool                `json:"valid"`
	ConfirmEnabled bool                `json:"confirm_enabled"`
	Items          []session.CartLine  `json:"items"`
	ItemCount      int                 `json:"item_count"`
	Subtotal       int64               `json:"subtotal"`
	Shipping       int64               `json:"shipping"`
	Total          int64               `json:"total"`
	LastOrder      *orders.Order       `json:"last_order,omitempty"`
	Message        string              `json:"message,omitempty"`
	LastError      string              `json:"last_error,omitempty"`
}

// Machine is the checkout state machine of one session. Its lock is always
// taken before the cart or order log locks.
type Machine struct {
	mu         sync.Mutex
	state      enums.CheckoutState
	method     enums.PaymentMethod
	phone      string
	lastOrder  *orders.Order
	lastErr    error
	message    string
	timer      Timer
	generation uint64
	startedAt  time.Time

	cart      Cart
	orders    OrderLog
	gateway   Gateway
	scheduler Scheduler
	sink      notify.Sink
	logg      *logger.Logger
	metrics   *metrics.Storefront
	shipping  int64
	delay     time.Duration
	now       func() time.Time
}

// NewMachine builds an idle machine.
func NewMachine(params Params) (*Machine, error) {
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order log is required")
	}
	if params.ShippingFee < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must be non-negative")
	}
	if params.ProcessingDelay < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "processing delay must be non-negative")
	}
	m := &Machine{
		state:     enums.CheckoutStateIdle,
		cart:      params.Cart,
		orders:    params.Orders,
		gateway:   params.Gateway,
		scheduler: params.Scheduler,
		sink:      params.Sink,
		logg:      params.Logger,
		metrics:   params.Metrics,
		shipping:  params.ShippingFee,
		delay:     params.ProcessingDelay,
		now:       params.Clock,
	}
	if m.gateway == nil {
		m.gateway = NewSimulatedGateway(0)
	}
	if m.scheduler == nil {
		m.scheduler = SystemScheduler{}
	}
	if m.sink == nil {
		m.sink = notify.Discard
	}
	if m.logg == nil {
		m.logg = logger.Nop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// State returns the current state.
func (m *Machine) State() enums.CheckoutState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Open starts a fresh checkout. Any previous method and details are
// discarded. An empty cart leaves the machine idle.
func (m *Machine) Open(ctx context.Context) error {
	m.mu.Lock()
	from := m.state
	if from == enums.CheckoutStateSubmitting {
		m.mu.Unlock()
		return conflict("payment is being processed", from)
	}
	m.resetLocked()
	if len(m.cart.CartLines()) == 0 {
		m.state = enums.CheckoutStateIdle
		m.mu.Unlock()
		m.transitioned(ctx, from, enums.CheckoutStateIdle)
		return pkgerrors.New(pkgerrors.CodeNoItemsToCheckout, "cart is empty")
	}
	m.state = enums.CheckoutStateReviewingCart
	m.mu.Unlock()

	m.transitioned(ctx, from, enums.CheckoutStateReviewingCart)
	return nil
}

// Proceed moves from cart review to method selection.
func (m *Machine) Proceed(ctx context.Context) error {
	m.mu.Lock()
	from := m.state
	if from != enums.CheckoutStateReviewingCart {
		m.mu.Unlock()
		return conflict("checkout is not reviewing the cart", from)
	}
	if len(m.cart.CartLines()) == 0 {
		m.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNoItemsToCheckout, "cart is empty")
	}
	m.state = enums.CheckoutStateAwaitingMethodSelection
	m.mu.Unlock()

	m.transitioned(ctx, from, enums.CheckoutStateAwaitingMethodSelection)
	return nil
}

// SelectMethod picks a payment method. Switching to a different method
// clears the details typed for the previous one.
func (m *Machine) SelectMethod(ctx context.Context, method enums.PaymentMethod) error {
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"method": string(method)})
	}
	m.mu.Lock()
	from := m.state
	if !from.AcceptsDetails() {
		m.mu.Unlock()
		return conflict("payment method cannot be selected now", from)
	}
	if m.method != method {
		m.phone = ""
	}
	m.method = method
	m.lastErr = nil
	m.state = enums.CheckoutStateAwaitingMethodDetails
	m.mu.Unlock()

	m.transitioned(ctx, from, enums.CheckoutStateAwaitingMethodDetails)
	return nil
}

// UpdateDetails records the latest typed details and reports whether the
// active method's requirements now hold.
func (m *Machine) UpdateDetails(ctx context.Context, details Details) (bool, error) {
	m.mu.Lock()
	from := m.state
	if from != enums.CheckoutStateAwaitingMethodDetails && from != enums.CheckoutStateFailed {
		m.mu.Unlock()
		return false, conflict("no payment method selected", from)
	}
	if m.method.IsMobileMoney() {
		m.phone = pkgcheckout.NormalizePhone(details.Phone)
	}
	m.lastErr = nil
	m.state = enums.CheckoutStateAwaitingMethodDetails
	valid := m.validLocked()
	m.mu.Unlock()

	m.transitioned(ctx, from, enums.CheckoutStateAwaitingMethodDetails)
	return valid, nil
}

// Confirm submits the payment. The outcome is applied by a scheduled
// completion after the processing delay.
func (m *Machine) Confirm(ctx context.Context) error {
	m.mu.Lock()
	from := m.state
	switch from {
	case enums.CheckoutStateSubmitting:
		m.mu.Unlock()
		return conflict("payment is already being processed", from)
	case enums.CheckoutStateAwaitingMethodDetails, enums.CheckoutStateFailed:
	default:
		m.mu.Unlock()
		return conflict("no payment method selected", from)
	}
	if err := pkgcheckout.ValidateDetails(m.method, m.phone); err != nil {
		m.mu.Unlock()
		return err
	}
	if len(m.cart.CartLines()) == 0 {
		m.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNoItemsToCheckout, "cart is empty")
	}
	m.state = enums.CheckoutStateSubmitting
	m.lastErr = nil
	m.generation++
	gen := m.generation
	m.startedAt = m.now()
	completionCtx := context.WithoutCancel(ctx)
	m.timer = m.scheduler.AfterFunc(m.delay, func() {
		m.complete(completionCtx, gen)
	})
	m.mu.Unlock()

	m.transitioned(ctx, from, enums.CheckoutStateSubmitting)
	return nil
}

// Retry returns a failed checkout to the details step.
func (m *Machine) Retry(ctx context.Context) error {
	m.mu.Lock()
	from := m.state
	if from != enums.CheckoutStateFailed {
		m.mu.Unlock()
		return conflict("only a failed payment can be retried", from)
	}
	m.lastErr = nil
	m.state = enums.CheckoutStateAwaitingMethodDetails
	m.mu.Unlock()

	m.transitioned(ctx, from, enums.CheckoutStateAwaitingMethodDetails)
	return nil
}

// Close abandons the checkout from any state. A pending payment is cancelled
// and the cart is left untouched.
func (m *Machine) Close(ctx context.Context) {
	m.mu.Lock()
	from := m.state
	if from == enums.CheckoutStateSubmitting {
		m.logg.Info(m.logg.WithField(ctx, "method", m.method.String()), "pending payment cancelled")
	}
	m.resetLocked()
	m.state = enums.CheckoutStateIdle
	m.mu.Unlock()

	m.transitioned(ctx, from, enums.CheckoutStateIdle)
}

// Snapshot returns the current view.
func (m *Machine) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.cart.CartLines()
	subtotal := session.LinesTotal(lines)
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	valid := m.validLocked()
	v := View{
		State:          m.state,
		Method:         m.method,
		Phone:          m.phone,
		Valid:          valid,
		ConfirmEnabled: valid && len(lines) > 0 && (m.state == enums.CheckoutStateAwaitingMethodDetails || m.state == enums.CheckoutStateFailed),
		Items:          lines,
		ItemCount:      count,
		Subtotal:       subtotal,
		Shipping:       m.shipping,
		Total:          subtotal + m.shipping,
		Message:        m.message,
	}
	if v.Items == nil {
		v.Items = []session.CartLine{}
	}
	if m.lastOrder != nil {
		o := m.lastOrder.Clone()
		v.LastOrder = &o
	}
	if m.lastErr != nil {
		v.LastError = m.lastErr.Error()
	}
	return v
}

// Err returns the error recorded by the last failed payment.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Machine) validLocked() bool {
	if m.method == "" {
		return false
	}
	return pkgcheckout.ValidateDetails(m.method, m.phone) == nil
}

func (m *Machine) resetLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.generation++
	m.method = ""
	m.phone = ""
	m.lastOrder = nil
	m.lastErr = nil
	m.message = ""
}

func (m *Machine) transitioned(ctx context.Context, from, to enums.CheckoutState) {
	if from == to {
		return
	}
	m.metrics.IncTransition(from.String(), to.String())
	m.sink.Notify(ctx, notify.EventCheckoutState, notify.Payload{
		Level: notify.LevelInfo,
		Data:  map[string]any{"from": from.String(), "to": to.String()},
	})
}

func conflict(msg string, state enums.CheckoutState) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).
		WithDetails(map[string]any{"state": state.String()})
}
