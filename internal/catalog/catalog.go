// Package catalog loads the read-only product list the session store
// snapshots from.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/toolshop/storefront/pkg/enums"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
)

//go:embed seed.json
var seed []byte

// Catalog is an immutable, validated product list.
type Catalog struct {
	products []Product
	index    map[int]int
}

var productValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return enums.Category(fl.Field().String()).IsValid()
	})
	return v
}

// New validates products and builds a catalog. Every invalid product is reported.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[int]int, len(products)),
	}
	var errs error
	for i, p := range products {
		if err := productValidator.Struct(p); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("product[%d] id=%d: %w", i, p.ID, err))
			continue
		}
		if _, dup := c.index[p.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("product[%d]: duplicate id %d", i, p.ID))
			continue
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p.Clone())
	}
	if errs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errs, "invalid catalog")
	}
	return c, nil
}

// Parse decodes a JSON product array.
func Parse(raw []byte) (*Catalog, error) {
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode catalog")
	}
	return New(products)
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(seed)
}

// Load reads the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read catalog file")
	}
	return Parse(raw)
}

// FindProduct returns a copy of the product with id.
func (c *Catalog) FindProduct(id int) (Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i].Clone(), true
}

// List returns every product in catalog order.
func (c *Catalog) List() []Product {
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p.Clone())
	}
	return out
}

// ByCategory returns the products in cat, in catalog order.
func (c *Catalog) ByCategory(cat enums.Category) []Product {
	out := []Product{}
	for _, p := range c.products {
		if p.Category == cat {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Categories lists every known category with its label and product count.
func (c *Catalog) Categories() []CategoryView {
	counts := make(map[enums.Category]int)
	for _, p := range c.products {
		counts[p.Category]++
	}
	out := make([]CategoryView, 0, len(enums.Categories()))
	for _, cat := range enums.Categories() {
		out = append(out, CategoryView{Category: cat, Label: cat.Label(), Count: counts[cat]})
	}
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}
