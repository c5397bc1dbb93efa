package session

import "github.com/toolshop/storefront/internal/catalog"

// MaxComparison bounds the comparison set.
const MaxComparison = 3

// MinComparison is how many products the comparison view needs.
const MinComparison = 2

// ProductFinder resolves catalog products by id.
type ProductFinder interface {
	FindProduct(id int) (catalog.Product, bool)
}

// ProductSnapshot is a copy of a product taken when it entered a collection.
// Later catalog edits never reach it.
type ProductSnapshot catalog.Product

func snapshotOf(p catalog.Product) ProductSnapshot {
	return ProductSnapshot(p.Clone())
}

func (s ProductSnapshot) clone() ProductSnapshot {
	return ProductSnapshot(catalog.Product(s).Clone())
}

// CartLine is one product in the cart with its quantity (always >= 1).
type CartLine struct {
	ProductSnapshot
	Quantity int `json:"quantity"`
}

// Subtotal returns price times quantity.
func (l CartLine) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

// Clone returns a deep copy of the line.
func (l CartLine) Clone() CartLine {
	return CartLine{ProductSnapshot: l.ProductSnapshot.clone(), Quantity: l.Quantity}
}

// Entry is a wishlist or comparison member.
type Entry struct {
	ProductSnapshot
}

// CloneLines deep-copies a slice of cart lines; nil stays nil.
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{ProductSnapshot: e.clone()}
	}
	return out
}

// LinesTotal sums price times quantity over lines.
func LinesTotal(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// Badges is the derived counter view shown next to navigation icons.
type Badges struct {
	CartCount       int   `json:"cart_count"`
	CartTotal       int64 `json:"cart_total"`
	WishlistSize    int   `json:"wishlist_size"`
	ComparisonSize  int   `json:"comparison_size"`
	ComparisonReady bool  `json:"comparison_ready"`
}
