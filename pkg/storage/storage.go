// Package storage defines the persistence port used to mirror shopping
// session state into a key-value backend.
//
// Values are JSON documents stored under "<namespace>:<session>:<key>".
// Every save overwrites the whole document, so concurrent writers sharing a
// backend resolve by last-writer-wins.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by backends when a key holds no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrUndecodable marks a stored value that is not valid JSON for its key.
	ErrUndecodable = errors.New("storage: value cannot be decoded")
)

// Key names one persisted session entry.
type Key string

const (
	KeyCart       Key = "cart"
	KeyWishlist   Key = "wishlist"
	KeyComparison Key = "comparison"
	KeyOrders     Key = "orders"
	KeyTheme      Key = "theme"
)

var validKeys = []Key{KeyCart, KeyWishlist, KeyComparison, KeyOrders, KeyTheme}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// IsValid reports whether the key is one of the known session entries.
func (k Key) IsValid() bool {
	for _, candidate := range validKeys {
		if candidate == k {
			return true
		}
	}
	return false
}

// Retained reports whether entries under k are kept forever. Retention
// policies of the backends never expire them.
func (k Key) Retained() bool {
	return k == KeyOrders
}

// RetainedKeys lists the keys whose entries are kept forever.
func RetainedKeys() []Key {
	out := make([]Key, 0, 1)
	for _, k := range validKeys {
		if k.Retained() {
			out = append(out, k)
		}
	}
	return out
}

// IsRetainedKey reports whether a full backend key names a retained entry.
func IsRetainedKey(fullKey string) bool {
	for _, k := range RetainedKeys() {
		if fullKey == string(k) || strings.HasSuffix(fullKey, ":"+string(k)) {
			return true
		}
	}
	return false
}

// Backend is the raw byte store behind a Scope.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Port is the typed get/set/clear surface consumed by the session components.
type Port interface {
	Load(ctx context.Context, key Key, dest any) (bool, error)
	Save(ctx context.Context, key Key, value any) error
	Clear(ctx context.Context, key Key) error
}

// Scope binds a Backend to one session namespace.
type Scope struct {
	backend Backend
	prefix  string
}

// NewScope returns a Scope writing under namespace:sessionID.
func NewScope(backend Backend, namespace, sessionID string) *Scope {
	parts := make([]string, 0, 2)
	for _, part := range []string{namespace, sessionID} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return &Scope{backend: backend, prefix: strings.Join(parts, ":")}
}

// FullKey returns the backend key used for key.
func (s *Scope) FullKey(key Key) string {
	if s.prefix == "" {
		return string(key)
	}
	return s.prefix + ":" + string(key)
}

// Load decodes the stored value into dest. It reports false when nothing is stored.
func (s *Scope) Load(ctx context.Context, key Key, dest any) (bool, error) {
	if !key.IsValid() {
		return false, fmt.Errorf("unknown storage key %q", key)
	}
	raw, err := s.backend.Get(ctx, s.FullKey(key))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w: %w", key, ErrUndecodable, err)
	}
	return true, nil
}

// Save encodes value as JSON and writes it.
func (s *Scope) Save(ctx context.Context, key Key, value any) error {
	if !key.IsValid() {
		return fmt.Errorf("unknown storage key %q", key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, s.FullKey(key), raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Clear removes the stored value.
func (s *Scope) Clear(ctx context.Context, key Key) error {
	if !key.IsValid() {
		return fmt.Errorf("unknown storage key %q", key)
	}
	if err := s.backend.Delete(ctx, s.FullKey(key)); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}
