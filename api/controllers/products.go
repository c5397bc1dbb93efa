package controllers

import (
	"net/http"
	"strings"

	"github.com/toolshop/storefront/api/responses"
	"github.com/toolshop/storefront/api/validators"
	"github.com/toolshop/storefront/internal/catalog"
	"github.com/toolshop/storefront/pkg/enums"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/money"
)

// Catalog is the read side of the product catalog.
type Catalog interface {
	List() []catalog.Product
	ByCategory(cat enums.Category) []catalog.Product
	FindProduct(id int) (catalog.Product, bool)
	Categories() []catalog.CategoryView
}

type productResponse struct {
	catalog.Product
	PriceLabel string `json:"price_label"`
}

func newProductResponse(p catalog.Product) productResponse {
	return productResponse{Product: p, PriceLabel: money.Format(p.Price)}
}

func newProductList(products []catalog.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p))
	}
	return out
}

// ProductList returns the catalog, optionally filtered by ?category=.
func ProductList(cat Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("category"))
		if raw == "" || raw == "all" {
			responses.WriteSuccess(w, newProductList(cat.List()))
			return
		}
		category, err := enums.ParseCategory(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category").
				WithDetails(map[string]any{"category": raw}))
			return
		}
		responses.WriteSuccess(w, newProductList(cat.ByCategory(category)))
	}
}

func ProductDetail(cat Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, ok := cat.FindProduct(int(id))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}

func CategoryList(cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, cat.Categories())
	}
}
