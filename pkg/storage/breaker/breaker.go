// Package breaker wraps a storage.Backend in a circuit breaker so a failing
// remote store fails fast instead of stalling every mutation.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/toolshop/storefront/pkg/storage"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = gobreaker.ErrOpenState

// Settings tunes the breaker.
type Settings struct {
	Name          string
	MaxFailures   uint32
	Interval      time.Duration
	OpenTimeout   time.Duration
	OnStateChange func(name string, from, to string)
}

// Backend guards another backend with a gobreaker circuit.
type Backend struct {
	next storage.Backend
	cb   *gobreaker.CircuitBreaker[[]byte]
}

// New wraps next.
func New(next storage.Backend, st Settings) *Backend {
	maxFailures := st.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	name := st.Name
	if name == "" {
		name = "storage"
	}
	settings := gobreaker.Settings{
		Name:     name,
		Interval: st.Interval,
		Timeout:  st.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, storage.ErrNotFound) || errors.Is(err, context.Canceled)
		},
	}
	if st.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			st.OnStateChange(name, from.String(), to.String())
		}
	}
	return &Backend{next: next, cb: gobreaker.NewCircuitBreaker[[]byte](settings)}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	return b.cb.Execute(func() ([]byte, error) {
		return b.next.Get(ctx, key)
	})
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.Set(ctx, key, value)
	})
	return err
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return err
}

// State reports the breaker state ("closed", "half-open" or "open").
func (b *Backend) State() string {
	return b.cb.State().String()
}
