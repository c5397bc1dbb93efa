package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolshop/storefront/internal/catalog"
	"github.com/toolshop/storefront/internal/session"
	"github.com/toolshop/storefront/pkg/enums"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/pagination"
	"github.com/toolshop/storefront/pkg/storage"
	"github.com/toolshop/storefront/pkg/storage/memory"
)

type brokenPort struct {
	storage.Port
}

func (brokenPort) Save(context.Context, storage.Key, any) error {
	return errors.New("disk full")
}

type unreadablePort struct {
	storage.Port
	loadErr error
	saves   int
}

func (u *unreadablePort) Load(ctx context.Context, key storage.Key, dest any) (bool, error) {
	if u.loadErr != nil {
		return false, u.loadErr
	}
	return u.Port.Load(ctx, key, dest)
}

func (u *unreadablePort) Save(ctx context.Context, key storage.Key, value any) error {
	u.saves++
	return u.Port.Save(ctx, key, value)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sampleOrder(method enums.PaymentMethod) Order {
	line := session.CartLine{
		ProductSnapshot: session.ProductSnapshot(catalog.Product{ID: 1, Name: "Scie Circulaire ProMax", Price: 15000}),
		Quantity:        1,
	}
	return Order{
		Items:    []session.CartLine{line},
		Subtotal: 15000,
		Shipping: 2500,
		Total:    17500,
		Method:   method,
	}
}

func newTestLog(t *testing.T, clock func() time.Time) (*Log, *storage.Scope) {
	t.Helper()
	scope := storage.NewScope(memory.New(), "test", "s1")
	l, err := NewLog(LogParams{Storage: scope, Clock: clock})
	require.NoError(t, err)
	return l, scope
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l, _ := newTestLog(t, fixedClock(at))

	first, err := l.Append(ctx, sampleOrder(enums.PaymentMethodOrangeMoney))
	require.NoError(t, err)
	second, err := l.Append(ctx, sampleOrder(enums.PaymentMethodCashDelivery))
	require.NoError(t, err)

	assert.Equal(t, at.UnixMilli(), first.ID)
	assert.Equal(t, first.ID+1, second.ID)
	assert.Equal(t, at, first.CreatedAt)
	assert.Equal(t, 2, l.Len())
}

func TestAppendDerivesStatusFromMethod(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t, nil)

	cases := map[enums.PaymentMethod]enums.OrderStatus{
		enums.PaymentMethodOrangeMoney:  enums.OrderStatusConfirmed,
		enums.PaymentMethodMTNMobile:    enums.OrderStatusConfirmed,
		enums.PaymentMethodCashDelivery: enums.OrderStatusConfirmed,
		enums.PaymentMethodBankTransfer: enums.OrderStatusPending,
	}
	for method, want := range cases {
		o, err := l.Append(ctx, sampleOrder(method))
		require.NoError(t, err)
		assert.Equal(t, want, o.Status, method.String())
	}
}

func TestAppendValidates(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t, nil)

	empty := sampleOrder(enums.PaymentMethodCashDelivery)
	empty.Items = nil
	_, err := l.Append(ctx, empty)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNoItemsToCheckout))

	badMethod := sampleOrder(enums.PaymentMethod("paypal"))
	_, err = l.Append(ctx, badMethod)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	badTotal := sampleOrder(enums.PaymentMethodCashDelivery)
	badTotal.Total = 1
	_, err = l.Append(ctx, badTotal)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Zero(t, l.Len())
}

func TestAppendIsolatesCallerSlices(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t, nil)
	o := sampleOrder(enums.PaymentMethodCashDelivery)

	stored, err := l.Append(ctx, o)
	require.NoError(t, err)
	o.Items[0].Quantity = 99
	stored.Items[0].Quantity = 42

	got, ok := l.Get(stored.ID)
	require.True(t, ok)
	assert.Equal(t, 1, got.Items[0].Quantity)
}

func TestAppendPersistenceFailureKeepsOrder(t *testing.T) {
	ctx := context.Background()
	l, err := NewLog(LogParams{Storage: brokenPort{Port: storage.NewScope(memory.New(), "", "s")}})
	require.NoError(t, err)

	o, err := l.Append(ctx, sampleOrder(enums.PaymentMethodMTNMobile))
	assert.True(t, pkgerrors.IsPersistenceFailure(err))
	assert.NotZero(t, o.ID)
	assert.Equal(t, 1, l.Len())
}

func TestRestoreContinuesIDSequence(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	backend := memory.New()
	scope := storage.NewScope(backend, "ns", "s")

	first, err := NewLog(LogParams{Storage: scope, Clock: fixedClock(at)})
	require.NoError(t, err)
	prev, err := first.Append(ctx, sampleOrder(enums.PaymentMethodOrangeMoney))
	require.NoError(t, err)

	earlier := at.Add(-time.Hour)
	second, err := NewLog(LogParams{Storage: scope, Clock: fixedClock(earlier)})
	require.NoError(t, err)
	require.NoError(t, second.Restore(ctx))
	require.Equal(t, 1, second.Len())

	next, err := second.Append(ctx, sampleOrder(enums.PaymentMethodOrangeMoney))
	require.NoError(t, err)
	assert.Equal(t, prev.ID+1, next.ID)

	last, ok := second.Last()
	require.True(t, ok)
	assert.Equal(t, next.ID, last.ID)
	assert.Equal(t, []int64{prev.ID, next.ID}, []int64{second.List()[0].ID, second.List()[1].ID})
}

func TestUnreadableHistoryIsNeverOverwritten(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	scope := storage.NewScope(memory.New(), "ns", "s")

	seed, err := NewLog(LogParams{Storage: scope, Clock: fixedClock(at)})
	require.NoError(t, err)
	first, err := seed.Append(ctx, sampleOrder(enums.PaymentMethodCashDelivery))
	require.NoError(t, err)
	second, err := seed.Append(ctx, sampleOrder(enums.PaymentMethodBankTransfer))
	require.NoError(t, err)

	port := &unreadablePort{Port: scope, loadErr: errors.New("circuit open")}
	l, err := NewLog(LogParams{Storage: port, Clock: fixedClock(at.Add(time.Minute))})
	require.NoError(t, err)
	assert.True(t, pkgerrors.IsPersistenceFailure(l.Restore(ctx)))
	assert.False(t, l.Synced())

	third, err := l.Append(ctx, sampleOrder(enums.PaymentMethodOrangeMoney))
	assert.True(t, pkgerrors.IsPersistenceFailure(err))
	assert.Zero(t, port.saves)

	var persisted []Order
	_, err = scope.Load(ctx, storage.KeyOrders, &persisted)
	require.NoError(t, err)
	require.Len(t, persisted, 2)

	port.loadErr = nil
	require.NoError(t, l.Restore(ctx))
	assert.True(t, l.Synced())
	assert.Equal(t, 1, port.saves)

	ids := func(list []Order) []int64 {
		out := make([]int64, 0, len(list))
		for _, o := range list {
			out = append(out, o.ID)
		}
		return out
	}
	want := []int64{first.ID, second.ID, third.ID}
	assert.Equal(t, want, ids(l.List()))

	persisted = nil
	_, err = scope.Load(ctx, storage.KeyOrders, &persisted)
	require.NoError(t, err)
	assert.Equal(t, want, ids(persisted))
}

func TestUndecodableHistoryStaysUntouched(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	scope := storage.NewScope(backend, "ns", "s")
	require.NoError(t, backend.Set(ctx, scope.FullKey(storage.KeyOrders), []byte(`{broken`)))

	l, err := NewLog(LogParams{Storage: scope})
	require.NoError(t, err)
	assert.Error(t, l.Restore(ctx))

	_, err = l.Append(ctx, sampleOrder(enums.PaymentMethodCashDelivery))
	assert.True(t, pkgerrors.IsPersistenceFailure(err))

	raw, err := backend.Get(ctx, scope.FullKey(storage.KeyOrders))
	require.NoError(t, err)
	assert.Equal(t, `{broken`, string(raw))
}

func TestPage(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t, fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
	for i := 0; i < 5; i++ {
		_, err := l.Append(ctx, sampleOrder(enums.PaymentMethodCashDelivery))
		require.NoError(t, err)
	}

	page, err := l.Page(pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.Cursor)

	var ids []int64
	cursor := ""
	for {
		page, err := l.Page(pagination.Params{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, o := range page.Items {
			ids = append(ids, o.ID)
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	assert.Len(t, ids, 5)
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}

	_, err = l.Page(pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
