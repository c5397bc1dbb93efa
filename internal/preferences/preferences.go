// Package preferences stores per-session UI preferences such as the theme.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/toolshop/storefront/internal/notify"
	"github.com/toolshop/storefront/pkg/enums"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/storage"
)

// Params groups dependencies for Preferences.
type Params struct {
	Storage storage.Port
	Sink    notify.Sink
	Logger  *logger.Logger
}

var errNotLoaded = errors.New("theme not loaded yet")

// Preferences holds the theme of one session. Light is the default.
type Preferences struct {
	mu    sync.Mutex
	theme enums.Theme
	// unsynced is the last error reading the stored theme. changed records a
	// choice made meanwhile, which wins once the stored value is readable.
	unsynced error
	changed  bool

	storage storage.Port
	sink    notify.Sink
	logg    *logger.Logger
}

// New builds preferences with the light theme.
func New(params Params) (*Preferences, error) {
	if params.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage port is required")
	}
	sink := params.Sink
	if sink == nil {
		sink = notify.Discard
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Preferences{
		theme:    enums.ThemeLight,
		unsynced: errNotLoaded,
		storage:  params.Storage,
		sink:     sink,
		logg:     logg,
	}, nil
}

// Load reads the persisted theme if it has not been read yet. Unknown values
// fall back to light.
func (p *Preferences) Load(ctx context.Context) error {
	p.mu.Lock()
	err := p.syncLocked(ctx)
	p.mu.Unlock()
	if err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "load theme preference")
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load theme")
	}
	return nil
}

// Synced reports whether the stored theme has been read.
func (p *Preferences) Synced() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unsynced == nil
}

func (p *Preferences) syncLocked(ctx context.Context) error {
	if p.unsynced == nil {
		return nil
	}
	var raw string
	ok, err := p.storage.Load(ctx, storage.KeyTheme, &raw)
	if err != nil && !errors.Is(err, storage.ErrUndecodable) {
		p.unsynced = err
		return err
	}
	p.unsynced = nil
	if p.changed {
		if serr := p.storage.Save(ctx, storage.KeyTheme, p.theme); serr != nil {
			p.logg.Error(ctx, "persist theme preference", serr)
		}
		return err
	}
	p.theme = enums.ThemeLight
	if ok {
		if parsed, perr := enums.ParseTheme(raw); perr == nil {
			p.theme = parsed
		}
	}
	return err
}

// Theme returns the current theme.
func (p *Preferences) Theme() enums.Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme
}

// Set stores theme.
func (p *Preferences) Set(ctx context.Context, theme enums.Theme) error {
	if !theme.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid theme").
			WithDetails(map[string]any{"theme": string(theme)})
	}
	p.mu.Lock()
	_ = p.syncLocked(ctx)
	err := p.setLocked(ctx, theme)
	p.mu.Unlock()
	return p.settled(ctx, theme, err)
}

// Toggle flips between light and dark and returns the new theme.
func (p *Preferences) Toggle(ctx context.Context) (enums.Theme, error) {
	p.mu.Lock()
	_ = p.syncLocked(ctx)
	next := p.theme.Toggle()
	err := p.setLocked(ctx, next)
	p.mu.Unlock()
	return next, p.settled(ctx, next, err)
}

// setLocked records theme and saves it unless the stored value is unread.
func (p *Preferences) setLocked(ctx context.Context, theme enums.Theme) error {
	p.theme = theme
	if p.unsynced != nil {
		p.changed = true
		return fmt.Errorf("theme not loaded: %w", p.unsynced)
	}
	return p.storage.Save(ctx, storage.KeyTheme, theme)
}

func (p *Preferences) settled(ctx context.Context, theme enums.Theme, err error) error {
	p.sink.Notify(ctx, notify.EventThemeChanged, notify.Payload{Level: notify.LevelInfo, Data: map[string]any{"theme": theme.String()}})
	if err != nil {
		p.logg.Error(ctx, "persist theme preference", err)
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist theme")
	}
	return nil
}
