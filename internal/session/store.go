// Package session holds the cart, wishlist and comparison collections of one
// shopping session and mirrors each of them to storage after every change.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/toolshop/storefront/internal/notify"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/metrics"
	"github.com/toolshop/storefront/pkg/storage"
)

// StoreParams groups dependencies for the collection store.
type StoreParams struct {
	Storage storage.Port
	Catalog ProductFinder
	Sink    notify.Sink
	Logger  *logger.Logger
	Metrics *metrics.Storefront
}

var collectionKeys = []storage.Key{storage.KeyCart, storage.KeyWishlist, storage.KeyComparison}

var errNotRestored = errors.New("not restored yet")

// Store owns the three collections. All methods are safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	cart       []CartLine
	wishlist   []Entry
	comparison []Entry

	// unsynced maps each collection whose persisted value has not been read
	// to the last load error. Saves of those collections are held back so a
	// partial view never overwrites what storage holds.
	unsynced map[storage.Key]error

	storage storage.Port
	catalog ProductFinder
	sink    notify.Sink
	logg    *logger.Logger
	metrics *metrics.Storefront
}

// NewStore builds an empty store with the required dependencies.
func NewStore(params StoreParams) (*Store, error) {
	if params.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage port is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product finder is required")
	}
	sink := params.Sink
	if sink == nil {
		sink = notify.Discard
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	unsynced := make(map[storage.Key]error, len(collectionKeys))
	for _, key := range collectionKeys {
		unsynced[key] = errNotRestored
	}
	return &Store{
		cart:       []CartLine{},
		wishlist:   []Entry{},
		comparison: []Entry{},
		unsynced:   unsynced,
		storage:    params.Storage,
		catalog:    params.Catalog,
		sink:       sink,
		logg:       logg,
		metrics:    params.Metrics,
	}, nil
}

// Restore reads every collection not yet loaded from storage. Changes made
// in memory while a collection could not be read are merged on top of the
// persisted value. Collections that still cannot be read stay unsynced and
// are reported together as a persistence failure. An undecodable entry is
// reported once and then treated as empty.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	var errs error
	for _, key := range collectionKeys {
		errs = multierr.Append(errs, s.syncLocked(ctx, key))
	}
	s.mu.Unlock()

	if errs != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", errs.Error()), "restore session collections")
		return pkgerrors.Wrap(pkgerrors.CodePersistence, errs, "restore session collections")
	}
	return nil
}

// Synced reports whether every collection has been read from storage.
func (s *Store) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unsynced) == 0
}

// syncLocked loads key if it is still unsynced and merges the in-memory
// value into it. Callers hold s.mu.
func (s *Store) syncLocked(ctx context.Context, key storage.Key) error {
	if _, pending := s.unsynced[key]; !pending {
		return nil
	}
	var (
		cart    []CartLine
		entries []Entry
		dest    any = &entries
	)
	if key == storage.KeyCart {
		dest = &cart
	}
	_, err := s.storage.Load(ctx, key, dest)
	if err != nil && !errors.Is(err, storage.ErrUndecodable) {
		s.unsynced[key] = err
		return err
	}
	if err != nil {
		cart, entries = nil, nil
	}
	switch key {
	case storage.KeyCart:
		s.cart = normalizeCart(append(cart, s.cart...))
	case storage.KeyWishlist:
		s.wishlist = dedupeEntries(append(entries, s.wishlist...), 0)
	case storage.KeyComparison:
		s.comparison = dedupeEntries(append(entries, s.comparison...), MaxComparison)
	}
	delete(s.unsynced, key)
	return err
}

// prepareLocked retries the read of key before a mutation. A failure is
// surfaced by the following persist.
func (s *Store) prepareLocked(ctx context.Context, key storage.Key) {
	if err := s.syncLocked(ctx, key); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"key": key.String(), "error": err.Error()}), "session collection not synced")
	}
}

// normalizeCart drops non-positive quantities and merges duplicate ids so a
// hand-edited or stale mirror cannot break the one-line-per-product rule.
func normalizeCart(lines []CartLine) []CartLine {
	out := make([]CartLine, 0, len(lines))
	seen := make(map[int]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 || l.ID <= 0 {
			continue
		}
		if i, ok := seen[l.ID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		seen[l.ID] = len(out)
		out = append(out, l)
	}
	return out
}

func dedupeEntries(entries []Entry, limit int) []Entry {
	out := make([]Entry, 0, len(entries))
	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if e.ID <= 0 {
			continue
		}
		if _, ok := seen[e.ID]; ok {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// persist writes value under key. Callers hold s.mu so writes for one key
// reach storage in mutation order. The in-memory state is kept on failure.
// Nothing is written while key is unsynced.
func (s *Store) persist(ctx context.Context, key storage.Key, value any) error {
	err := s.unsynced[key]
	if err != nil {
		err = fmt.Errorf("%s not restored: %w", key, err)
	} else {
		err = s.storage.Save(ctx, key, value)
	}
	if err != nil {
		s.metrics.IncPersistenceFailure(key.String())
		s.logg.Error(s.logg.WithField(ctx, "key", key.String()), "persist session collection", err)
		s.sink.Notify(ctx, notify.EventPersistenceFailed, notify.Payload{
			Level:   notify.LevelError,
			Message: fmt.Sprintf("could not save %s", key),
			Data:    map[string]any{"key": key.String()},
		})
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, fmt.Sprintf("persist %s", key))
	}
	return nil
}

func (s *Store) record(collection, op string) {
	s.metrics.IncMutation(collection, op)
}

func indexOfLine(lines []CartLine, id int) int {
	for i, l := range lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func indexOfEntry(entries []Entry, id int) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
