package preferences

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolshop/storefront/internal/notify"
	"github.com/toolshop/storefront/pkg/enums"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/storage"
	"github.com/toolshop/storefront/pkg/storage/memory"
)

func TestThemeDefaultsToLight(t *testing.T) {
	p, err := New(Params{Storage: storage.NewScope(memory.New(), "", "s")})
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, enums.ThemeLight, p.Theme())
}

func TestToggleAndReload(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	inbox := notify.NewInbox(4)
	p, err := New(Params{Storage: storage.NewScope(backend, "ns", "s"), Sink: inbox})
	require.NoError(t, err)

	theme, err := p.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, enums.ThemeDark, theme)
	assert.Equal(t, 1, inbox.Len())

	raw, err := backend.Get(ctx, "ns:s:theme")
	require.NoError(t, err)
	assert.Equal(t, `"dark"`, string(raw))

	reloaded, err := New(Params{Storage: storage.NewScope(backend, "ns", "s")})
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, enums.ThemeDark, reloaded.Theme())

	theme, err = reloaded.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, enums.ThemeLight, theme)
}

func TestSetRejectsUnknownTheme(t *testing.T) {
	p, err := New(Params{Storage: storage.NewScope(memory.New(), "", "s")})
	require.NoError(t, err)
	err = p.Set(context.Background(), enums.Theme("sepia"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, enums.ThemeLight, p.Theme())
}

func TestLoadIgnoresUnknownStoredValue(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	require.NoError(t, backend.Set(ctx, "s:theme", []byte(`"sepia"`)))

	p, err := New(Params{Storage: storage.NewScope(backend, "", "s")})
	require.NoError(t, err)
	require.NoError(t, p.Load(ctx))
	assert.Equal(t, enums.ThemeLight, p.Theme())
}

func TestConcurrentTogglesAllApply(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	p, err := New(Params{Storage: storage.NewScope(backend, "ns", "s")})
	require.NoError(t, err)
	require.NoError(t, p.Load(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 51; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Toggle(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, enums.ThemeDark, p.Theme())
	raw, err := backend.Get(ctx, "ns:s:theme")
	require.NoError(t, err)
	assert.Equal(t, `"dark"`, string(raw))
}

type unreadablePort struct {
	storage.Port
	loadErr error
}

func (u *unreadablePort) Load(ctx context.Context, key storage.Key, dest any) (bool, error) {
	if u.loadErr != nil {
		return false, u.loadErr
	}
	return u.Port.Load(ctx, key, dest)
}

func TestChoiceMadeWhileUnreadableWins(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	scope := storage.NewScope(backend, "ns", "s")
	require.NoError(t, scope.Save(ctx, storage.KeyTheme, enums.ThemeDark))

	port := &unreadablePort{Port: scope, loadErr: errors.New("timeout")}
	p, err := New(Params{Storage: port})
	require.NoError(t, err)
	assert.True(t, pkgerrors.IsPersistenceFailure(p.Load(ctx)))

	err = p.Set(ctx, enums.ThemeLight)
	assert.True(t, pkgerrors.IsPersistenceFailure(err))
	raw, err := backend.Get(ctx, "ns:s:theme")
	require.NoError(t, err)
	assert.Equal(t, `"dark"`, string(raw))

	port.loadErr = nil
	require.NoError(t, p.Load(ctx))
	assert.Equal(t, enums.ThemeLight, p.Theme())
	raw, err = backend.Get(ctx, "ns:s:theme")
	require.NoError(t, err)
	assert.Equal(t, `"light"`, string(raw))
}
