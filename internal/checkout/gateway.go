package checkout

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/toolshop/storefront/pkg/enums"
)

// ErrPaymentDeclined is returned by the simulated gateway when a charge is
// chosen to fail.
var ErrPaymentDeclined = errors.New("payment declined")

// Charge is the request handed to a payment gateway.
type Charge struct {
	Method enums.PaymentMethod
	Amount int64
	Phone  string
}

// Gateway settles a charge. A nil error means the payment succeeded.
type Gateway interface {
	Charge(ctx context.Context, charge Charge) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, charge Charge) error

func (f GatewayFunc) Charge(ctx context.Context, charge Charge) error {
	return f(ctx, charge)
}

// SimulatedGateway accepts every charge except a random FailureRate share.
type SimulatedGateway struct {
	FailureRate float64
	rand        func() float64
}

// NewSimulatedGateway returns a gateway failing with probability failureRate.
func NewSimulatedGateway(failureRate float64) *SimulatedGateway {
	return &SimulatedGateway{FailureRate: failureRate, rand: rand.Float64}
}

func (g *SimulatedGateway) Charge(ctx context.Context, _ Charge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.FailureRate <= 0 {
		return nil
	}
	roll := rand.Float64
	if g.rand != nil {
		roll = g.rand
	}
	if roll() < g.FailureRate {
		return ErrPaymentDeclined
	}
	return nil
}
