package session

import (
	"context"

	"github.com/toolshop/storefront/internal/notify"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/storage"
)

// ToggleWishlist adds or removes id and reports whether it is now a member.
// Unknown ids are ignored.
func (s *Store) ToggleWishlist(ctx context.Context, id int) (bool, error) {
	product, ok := s.catalog.FindProduct(id)
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	s.prepareLocked(ctx, storage.KeyWishlist)
	added := false
	if i := indexOfEntry(s.wishlist, id); i >= 0 {
		s.wishlist = append(s.wishlist[:i:i], s.wishlist[i+1:]...)
	} else {
		s.wishlist = append(s.wishlist, Entry{ProductSnapshot: snapshotOf(product)})
		added = true
	}
	err := s.persist(ctx, storage.KeyWishlist, s.wishlist)
	size := len(s.wishlist)
	s.mu.Unlock()

	payload := notify.Payload{Level: notify.LevelInfo, Message: "💔 Retiré des favoris", Data: map[string]any{"product_id": id, "size": size, "member": added}}
	op := "remove"
	if added {
		payload.Level, payload.Message = notify.LevelSuccess, "❤️ Ajouté aux favoris!"
		op = "add"
	}
	s.record("wishlist", op)
	s.sink.Notify(ctx, notify.EventWishlistUpdated, payload)
	return added, err
}

// AddFromWishlist puts one unit of a wishlist product in the cart. The
// wishlist itself is unchanged.
func (s *Store) AddFromWishlist(ctx context.Context, id int) error {
	return s.AddToCart(ctx, id)
}

// ToggleComparison adds or removes id and reports whether it is now a member.
// Adding to a full set fails with CAPACITY_EXCEEDED and changes nothing.
func (s *Store) ToggleComparison(ctx context.Context, id int) (bool, error) {
	product, ok := s.catalog.FindProduct(id)
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	s.prepareLocked(ctx, storage.KeyComparison)
	i := indexOfEntry(s.comparison, id)
	if i < 0 && len(s.comparison) >= MaxComparison {
		size := len(s.comparison)
		s.mu.Unlock()
		s.record("comparison", "rejected")
		s.sink.Notify(ctx, notify.EventComparisonRejected, notify.Payload{
			Level:   notify.LevelError,
			Message: "⚠️ Maximum 3 produits à comparer",
			Data:    map[string]any{"product_id": id, "size": size},
		})
		return false, pkgerrors.New(pkgerrors.CodeCapacityExceeded, "comparison holds at most 3 products").
			WithDetails(map[string]any{"max": MaxComparison, "product_id": id})
	}
	added := false
	if i >= 0 {
		s.comparison = append(s.comparison[:i:i], s.comparison[i+1:]...)
	} else {
		s.comparison = append(s.comparison, Entry{ProductSnapshot: snapshotOf(product)})
		added = true
	}
	err := s.persist(ctx, storage.KeyComparison, s.comparison)
	size := len(s.comparison)
	s.mu.Unlock()

	payload := notify.Payload{Level: notify.LevelInfo, Message: "📊 Retiré de la comparaison", Data: map[string]any{"product_id": id, "size": size, "member": added}}
	op := "remove"
	if added {
		payload.Level, payload.Message = notify.LevelSuccess, "📊 Ajouté à la comparaison"
		op = "add"
	}
	s.record("comparison", op)
	s.sink.Notify(ctx, notify.EventComparisonUpdated, payload)
	return added, err
}

// ClearComparison empties the comparison set.
func (s *Store) ClearComparison(ctx context.Context) error {
	s.mu.Lock()
	s.prepareLocked(ctx, storage.KeyComparison)
	s.comparison = []Entry{}
	err := s.persist(ctx, storage.KeyComparison, s.comparison)
	s.mu.Unlock()

	s.record("comparison", "clear")
	s.sink.Notify(ctx, notify.EventComparisonUpdated, notify.Payload{Level: notify.LevelInfo, Data: map[string]any{"size": 0}})
	return err
}

func (s *Store) IsInWishlist(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOfEntry(s.wishlist, id) >= 0
}

func (s *Store) IsInComparison(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOfEntry(s.comparison, id) >= 0
}

func (s *Store) ComparisonSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.comparison)
}

func (s *Store) WishlistSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wishlist)
}

// Wishlist returns a copy of the wishlist in insertion order.
func (s *Store) Wishlist() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.wishlist)
}

// Comparison returns a copy of the comparison set in insertion order.
func (s *Store) Comparison() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.comparison)
}

// Badges returns every derived counter under one lock.
func (s *Store) Badges() Badges {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, total := cartCounters(s.cart)
	return Badges{
		CartCount:       count,
		CartTotal:       total,
		WishlistSize:    len(s.wishlist),
		ComparisonSize:  len(s.comparison),
		ComparisonReady: len(s.comparison) >= MinComparison,
	}
}
