// Package orders keeps the append-only history of completed checkouts.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/metrics"
	"github.com/toolshop/storefront/pkg/pagination"
	"github.com/toolshop/storefront/pkg/storage"
)

// LogParams groups dependencies for the order log.
type LogParams struct {
	Storage storage.Port
	Logger  *logger.Logger
	Metrics *metrics.Storefront
	Clock   func() time.Time
}

var errNotRestored = errors.New("order log not restored yet")

// Log is the append-only order history of one session.
type Log struct {
	mu     sync.Mutex
	orders []Order
	lastID int64
	// unsynced is the last error reading the persisted history, nil once it
	// has been read. The log is never saved while it is set.
	unsynced error

	storage storage.Port
	logg    *logger.Logger
	metrics *metrics.Storefront
	now     func() time.Time
}

// NewLog builds an empty log.
func NewLog(params LogParams) (*Log, error) {
	if params.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage port is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Log{
		orders:   []Order{},
		unsynced: errNotRestored,
		storage:  params.Storage,
		logg:     logg,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// Restore reads the persisted history if it has not been read yet. Orders
// recorded while it could not be read are merged into it and saved.
func (l *Log) Restore(ctx context.Context) error {
	l.mu.Lock()
	err := l.syncLocked(ctx)
	l.mu.Unlock()
	if err != nil {
		l.logg.Warn(l.logg.WithField(ctx, "error", err.Error()), "restore order log")
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "restore order log")
	}
	return nil
}

// Synced reports whether the persisted history has been read.
func (l *Log) Synced() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unsynced == nil
}

// syncLocked loads the persisted history once. An undecodable history keeps
// the log unsynced so it is never overwritten. Callers hold l.mu.
func (l *Log) syncLocked(ctx context.Context) error {
	if l.unsynced == nil {
		return nil
	}
	var stored []Order
	if _, err := l.storage.Load(ctx, storage.KeyOrders, &stored); err != nil {
		l.unsynced = err
		return err
	}
	recorded := l.orders

	l.orders = make([]Order, 0, len(stored)+len(l.orders))
	l.lastID = 0
	known := make(map[int64]time.Time, len(stored))
	for _, o := range stored {
		l.orders = append(l.orders, o)
		known[o.ID] = o.CreatedAt
		if o.ID > l.lastID {
			l.lastID = o.ID
		}
	}
	pending := 0
	for _, o := range recorded {
		if at, ok := known[o.ID]; ok && at.Equal(o.CreatedAt) {
			continue
		}
		if o.ID <= l.lastID {
			o.ID = l.lastID + 1
		}
		l.lastID = o.ID
		l.orders = append(l.orders, o)
		pending++
	}
	l.unsynced = nil

	if pending > 0 {
		if err := l.storage.Save(ctx, storage.KeyOrders, l.orders); err != nil {
			l.metrics.IncPersistenceFailure(storage.KeyOrders.String())
			l.logg.Error(l.logg.WithField(ctx, "pending", pending), "persist merged order log", err)
		}
	}
	return nil
}

// Append assigns the next id and a timestamp, records the order and persists
// the whole log. A persistence failure is returned but the order stays
// recorded in memory. While the persisted history cannot be read nothing is
// saved, and the order is merged in by a later Restore or Append.
func (l *Log) Append(ctx context.Context, o Order) (Order, error) {
	if err := validate(o); err != nil {
		return Order{}, err
	}

	l.mu.Lock()
	if err := l.syncLocked(ctx); err != nil {
		l.logg.Warn(l.logg.WithField(ctx, "error", err.Error()), "order log not synced")
	}
	now := l.now()
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	o = o.Clone()
	o.ID = id
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now.UTC()
	}
	if o.Status == "" {
		o.Status = o.Method.InitialOrderStatus()
	}
	l.lastID = id
	l.orders = append(l.orders, o)
	err := l.unsynced
	if err != nil {
		err = fmt.Errorf("order log not restored: %w", err)
	} else {
		err = l.storage.Save(ctx, storage.KeyOrders, l.orders)
	}
	l.mu.Unlock()

	l.metrics.IncOrder(o.Method.String(), o.Status.String())
	if err != nil {
		l.metrics.IncPersistenceFailure(storage.KeyOrders.String())
		l.logg.Error(l.logg.WithField(ctx, "order_id", o.ID), "persist order log", err)
		return o.Clone(), pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist orders")
	}
	return o.Clone(), nil
}

func validate(o Order) error {
	if len(o.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeNoItemsToCheckout, "order has no items")
	}
	if !o.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", o.Method))
	}
	if o.Status != "" && !o.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", o.Status))
	}
	if o.Total != o.Subtotal+o.Shipping {
		return pkgerrors.New(pkgerrors.CodeValidation, "order total does not match subtotal plus shipping")
	}
	return nil
}

// List returns every order, oldest first.
func (l *Log) List() []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Order, len(l.orders))
	for i, o := range l.orders {
		out[i] = o.Clone()
	}
	return out
}

// Get returns the order with id.
func (l *Log) Get(id int64) (Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, o := range l.orders {
		if o.ID == id {
			return o.Clone(), true
		}
	}
	return Order{}, false
}

// Len returns the number of recorded orders.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}

// Last returns the most recent order.
func (l *Log) Last() (Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.orders) == 0 {
		return Order{}, false
	}
	return l.orders[len(l.orders)-1].Clone(), true
}

// Page returns up to params.Limit orders after the cursor, oldest first.
func (l *Log) Page(params pagination.Params) (Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	l.mu.Lock()
	defer l.mu.Unlock()
	items := make([]Order, 0, limit)
	for _, o := range l.orders {
		if cursor != nil && o.ID <= cursor.ID {
			continue
		}
		if len(items) == limit {
			last := items[len(items)-1]
			return Page{
				Items:  items,
				Cursor: pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}),
			}, nil
		}
		items = append(items, o.Clone())
	}
	return Page{Items: items}, nil
}
