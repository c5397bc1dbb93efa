package controllers

import (
	"net/http"

	"github.com/toolshop/storefront/api/responses"
	"github.com/toolshop/storefront/api/validators"
	"github.com/toolshop/storefront/internal/session"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/money"
)

type cartResponse struct {
	Items      []session.CartLine `json:"items"`
	ItemCount  int                `json:"item_count"`
	Total      int64              `json:"total"`
	TotalLabel string             `json:"total_label"`
}

// newCartResponse derives every figure from one copy of the cart.
func newCartResponse(store *session.Store) cartResponse {
	lines := store.CartLines()
	if lines == nil {
		lines = []session.CartLine{}
	}
	total := session.LinesTotal(lines)
	return cartResponse{
		Items:      lines,
		ItemCount:  session.LinesCount(lines),
		Total:      total,
		TotalLabel: money.Format(total),
	}
}

type addCartItemRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
}

type adjustCartItemRequest struct {
	Delta int `json:"delta" validate:"required,ne=0"`
}

func CartGet(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(sess.Store))
	}
}

// CartAddItem adds one unit of a product. Unknown ids leave the cart as is.
func CartAddItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		persisted, err := settle(sess.Store.AddToCart(r.Context(), payload.ProductID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mutation{Persisted: persisted, Result: newCartResponse(sess.Store)})
	}
}

// CartAdjustItem changes a line quantity by delta; reaching zero removes it.
func CartAdjustItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload adjustCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		persisted, err := settle(sess.Store.SetQuantity(r.Context(), id, payload.Delta))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mutation{Persisted: persisted, Result: newCartResponse(sess.Store)})
	}
}

func CartRemoveItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		persisted, err := settle(sess.Store.RemoveFromCart(r.Context(), id))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mutation{Persisted: persisted, Result: newCartResponse(sess.Store)})
	}
}
