package session

import (
	"context"
	"math"

	"github.com/toolshop/storefront/internal/notify"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/storage"
)

// AddToCart adds one unit of product id. Unknown ids are ignored.
func (s *Store) AddToCart(ctx context.Context, id int) error {
	product, ok := s.catalog.FindProduct(id)
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.prepareLocked(ctx, storage.KeyCart)
	if i := indexOfLine(s.cart, id); i >= 0 {
		if s.cart[i].Quantity == math.MaxInt {
			s.mu.Unlock()
			return quantityOutOfRange(id)
		}
		s.cart[i].Quantity++
	} else {
		s.cart = append(s.cart, CartLine{ProductSnapshot: snapshotOf(product), Quantity: 1})
	}
	err := s.persist(ctx, storage.KeyCart, s.cart)
	count, total := cartCounters(s.cart)
	s.mu.Unlock()

	s.record("cart", "add")
	s.notifyCart(ctx, notify.LevelSuccess, "✅ Ajouté au panier!", id, count, total)
	return err
}

// SetQuantity adds delta to the line for id. A resulting quantity of zero or
// less removes the line. Absent ids are ignored.
func (s *Store) SetQuantity(ctx context.Context, id, delta int) error {
	s.mu.Lock()
	s.prepareLocked(ctx, storage.KeyCart)
	i := indexOfLine(s.cart, id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	if delta > 0 && s.cart[i].Quantity > math.MaxInt-delta {
		s.mu.Unlock()
		return quantityOutOfRange(id)
	}
	if s.cart[i].Quantity+delta <= 0 {
		err := s.removeLocked(ctx, i)
		count, total := cartCounters(s.cart)
		s.mu.Unlock()

		s.record("cart", "remove")
		s.notifyCart(ctx, notify.LevelInfo, "🗑️ Produit retiré", id, count, total)
		return err
	}
	s.cart[i].Quantity += delta
	err := s.persist(ctx, storage.KeyCart, s.cart)
	count, total := cartCounters(s.cart)
	s.mu.Unlock()

	s.record("cart", "set_quantity")
	s.notifyCart(ctx, notify.LevelInfo, "", id, count, total)
	return err
}

// RemoveFromCart deletes the line for id if present.
func (s *Store) RemoveFromCart(ctx context.Context, id int) error {
	s.mu.Lock()
	s.prepareLocked(ctx, storage.KeyCart)
	i := indexOfLine(s.cart, id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	err := s.removeLocked(ctx, i)
	count, total := cartCounters(s.cart)
	s.mu.Unlock()

	s.record("cart", "remove")
	s.notifyCart(ctx, notify.LevelInfo, "🗑️ Produit retiré", id, count, total)
	return err
}

func (s *Store) removeLocked(ctx context.Context, i int) error {
	s.cart = append(s.cart[:i:i], s.cart[i+1:]...)
	return s.persist(ctx, storage.KeyCart, s.cart)
}

// RemoveLines takes the quantities of lines out of the cart, dropping lines
// that reach zero. Units added after lines was read stay in the cart.
func (s *Store) RemoveLines(ctx context.Context, lines []CartLine) error {
	s.mu.Lock()
	s.prepareLocked(ctx, storage.KeyCart)
	kept := make([]CartLine, 0, len(s.cart))
	for _, l := range s.cart {
		for _, ordered := range lines {
			if ordered.ID == l.ID {
				l.Quantity -= ordered.Quantity
			}
		}
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	s.cart = kept
	err := s.persist(ctx, storage.KeyCart, s.cart)
	count, total := cartCounters(s.cart)
	s.mu.Unlock()

	s.record("cart", "remove_lines")
	s.notifyCart(ctx, notify.LevelInfo, "", 0, count, total)
	return err
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	s.prepareLocked(ctx, storage.KeyCart)
	s.cart = []CartLine{}
	err := s.persist(ctx, storage.KeyCart, s.cart)
	s.mu.Unlock()

	s.record("cart", "clear")
	s.notifyCart(ctx, notify.LevelInfo, "", 0, 0, 0)
	return err
}

// CartTotal returns the sum of price times quantity.
func (s *Store) CartTotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LinesTotal(s.cart)
}

// CartItemCount returns the sum of quantities.
func (s *Store) CartItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, _ := cartCounters(s.cart)
	return count
}

// IsCartEmpty reports whether the cart has no lines.
func (s *Store) IsCartEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cart) == 0
}

// CartLines returns a copy of the cart in insertion order.
func (s *Store) CartLines() []CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneLines(s.cart)
}

// LinesCount returns the sum of quantities of lines.
func LinesCount(lines []CartLine) int {
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return count
}

func cartCounters(lines []CartLine) (int, int64) {
	return LinesCount(lines), LinesTotal(lines)
}

func quantityOutOfRange(id int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range").
		WithDetails(map[string]any{"product_id": id})
}

func (s *Store) notifyCart(ctx context.Context, level notify.Level, msg string, id, count int, total int64) {
	data := map[string]any{"count": count, "total": total}
	if id > 0 {
		data["product_id"] = id
	}
	s.sink.Notify(ctx, notify.EventCartUpdated, notify.Payload{Level: level, Message: msg, Data: data})
}
