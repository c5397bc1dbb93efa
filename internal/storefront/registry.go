// Package storefront wires the per-session components together and keeps the
// live sessions of the process.
package storefront

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/toolshop/storefront/internal/checkout"
	"github.com/toolshop/storefront/internal/notify"
	"github.com/toolshop/storefront/internal/orders"
	"github.com/toolshop/storefront/internal/preferences"
	"github.com/toolshop/storefront/internal/session"
	"github.com/toolshop/storefront/pkg/enums"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/metrics"
	"github.com/toolshop/storefront/pkg/storage"
)

const maxSessionIDLength = 128

// Session bundles the state of one shopper.
type Session struct {
	ID          string
	Store       *session.Store
	Orders      *orders.Log
	Checkout    *checkout.Machine
	Preferences *preferences.Preferences
	Inbox       *notify.Inbox

	mu       sync.Mutex
	lastSeen time.Time
}

// LastSeen returns when the session was last handed out by the registry.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(at time.Time) {
	s.mu.Lock()
	s.lastSeen = at
	s.mu.Unlock()
}

func (s *Session) synced() bool {
	return s.Store.Synced() && s.Orders.Synced() && s.Preferences.Synced()
}

func (s *Session) restore(ctx context.Context) error {
	return multierr.Combine(s.Store.Restore(ctx), s.Orders.Restore(ctx), s.Preferences.Load(ctx))
}

// RegistryParams groups dependencies shared by every session.
type RegistryParams struct {
	Backend         storage.Backend
	Namespace       string
	Catalog         session.ProductFinder
	Gateway         checkout.Gateway
	Scheduler       checkout.Scheduler
	Logger          *logger.Logger
	Metrics         *metrics.Storefront
	ShippingFee     int64
	ProcessingDelay time.Duration
	IdleTTL         time.Duration
	InboxSize       int
	Clock           func() time.Time
}

// Registry lazily builds sessions and evicts idle ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	params   RegistryParams
	logg     *logger.Logger
	now      func() time.Time
}

// NewRegistry validates the shared dependencies.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage backend is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	}
	if params.ShippingFee < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must be non-negative")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Registry{
		sessions: map[string]*Session{},
		params:   params,
		logg:     logg,
		now:      now,
	}, nil
}

// Get returns the session for id, building and restoring it on first use.
// Entries that fail to restore are logged and held back from writes; each
// later Get retries them until storage answers.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if len(id) > maxSessionIDLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is too long").
			WithDetails(map[string]any{"max_length": maxSessionIDLength})
	}

	if sess, ok := r.lookup(id); ok {
		r.resync(ctx, sess)
		return sess, nil
	}

	built, err := r.build(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if sess, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		sess.touch(r.now())
		return sess, nil
	}
	r.sessions[id] = built
	active := len(r.sessions)
	r.mu.Unlock()

	r.params.Metrics.SetActiveSessions(active)
	return built, nil
}

func (r *Registry) lookup(id string) (*Session, bool) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		sess.touch(r.now())
	}
	return sess, ok
}

// resync retries the restore of a session whose entries could not be read.
func (r *Registry) resync(ctx context.Context, sess *Session) {
	if sess.synced() {
		return
	}
	ctx = r.logg.WithSessionID(ctx, sess.ID)
	if err := sess.restore(ctx); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "session still not restored")
		return
	}
	r.logg.Info(ctx, "session restored after storage recovered")
}

func (r *Registry) build(ctx context.Context, id string) (*Session, error) {
	ctx = r.logg.WithSessionID(ctx, id)
	scope := storage.NewScope(r.params.Backend, r.params.Namespace, id)
	inbox := notify.NewInbox(r.params.InboxSize)
	sink := notify.Multi(inbox, notify.NewLogSink(r.logg))

	store, err := session.NewStore(session.StoreParams{
		Storage: scope,
		Catalog: r.params.Catalog,
		Sink:    sink,
		Logger:  r.logg,
		Metrics: r.params.Metrics,
	})
	if err != nil {
		return nil, err
	}
	log, err := orders.NewLog(orders.LogParams{
		Storage: scope,
		Logger:  r.logg,
		Metrics: r.params.Metrics,
		Clock:   r.params.Clock,
	})
	if err != nil {
		return nil, err
	}
	prefs, err := preferences.New(preferences.Params{Storage: scope, Sink: sink, Logger: r.logg})
	if err != nil {
		return nil, err
	}
	machine, err := checkout.NewMachine(checkout.Params{
		Cart:            store,
		Orders:          log,
		Gateway:         r.params.Gateway,
		Scheduler:       r.params.Scheduler,
		Sink:            sink,
		Logger:          r.logg,
		Metrics:         r.params.Metrics,
		ShippingFee:     r.params.ShippingFee,
		ProcessingDelay: r.params.ProcessingDelay,
		Clock:           r.params.Clock,
	})
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:          id,
		Store:       store,
		Orders:      log,
		Checkout:    machine,
		Preferences: prefs,
		Inbox:       inbox,
		lastSeen:    r.now(),
	}
	if err := sess.restore(ctx); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "session restored partially")
	} else {
		r.logg.Debug(ctx, "session restored")
	}
	return sess, nil
}

// EvictIdle drops sessions unused for longer than the idle TTL. Sessions with
// a payment in flight are kept. It returns how many sessions were dropped.
func (r *Registry) EvictIdle(ctx context.Context, now time.Time) int {
	if r.params.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-r.params.IdleTTL)

	r.mu.Lock()
	evicted := 0
	for id, sess := range r.sessions {
		if !sess.LastSeen().Before(cutoff) {
			continue
		}
		if sess.Checkout.State() == enums.CheckoutStateSubmitting {
			continue
		}
		sess.Checkout.Close(ctx)
		delete(r.sessions, id)
		evicted++
	}
	active := len(r.sessions)
	r.mu.Unlock()

	r.params.Metrics.SetActiveSessions(active)
	if evicted > 0 {
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{"evicted": evicted, "active": active}), "idle sessions evicted")
	}
	return evicted
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
