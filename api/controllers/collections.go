package controllers

import (
	"net/http"

	"github.com/toolshop/storefront/api/responses"
	"github.com/toolshop/storefront/internal/session"
	"github.com/toolshop/storefront/pkg/logger"
)

type collectionResponse struct {
	Items []session.Entry `json:"items"`
	Size  int             `json:"size"`
}

type toggleResponse struct {
	ProductID int             `json:"product_id"`
	Present   bool            `json:"present"`
	Items     []session.Entry `json:"items"`
}

type comparisonResponse struct {
	Items []session.Entry `json:"items"`
	Size  int             `json:"size"`
	Max   int             `json:"max"`
	Ready bool            `json:"ready"`
}

func newComparisonResponse(store *session.Store) comparisonResponse {
	items := store.Comparison()
	return comparisonResponse{
		Items: items,
		Size:  len(items),
		Max:   session.MaxComparison,
		Ready: len(items) >= session.MinComparison,
	}
}

func WishlistGet(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := sess.Store.Wishlist()
		responses.WriteSuccess(w, collectionResponse{Items: items, Size: len(items)})
	}
}

func WishlistToggle(logg *logger.Logger) http.HandlerFunc {
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
		present, err := sess.Store.ToggleWishlist(r.Context(), id)
		persisted, err := settle(err)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mutation{
			Persisted: persisted,
			Result:    toggleResponse{ProductID: id, Present: present, Items: sess.Store.Wishlist()},
		})
	}
}

// WishlistMoveToCart adds a wishlisted product to the cart. The wishlist
// entry is kept.
func WishlistMoveToCart(logg *logger.Logger) http.HandlerFunc {
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
		persisted, err := settle(sess.Store.AddFromWishlist(r.Context(), id))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mutation{Persisted: persisted, Result: newCartResponse(sess.Store)})
	}
}

func ComparisonGet(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newComparisonResponse(sess.Store))
	}
}

// ComparisonToggle adds or removes a product. Adding a fourth product is
// rejected with CAPACITY_EXCEEDED.
func ComparisonToggle(logg *logger.Logger) http.HandlerFunc {
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
		present, err := sess.Store.ToggleComparison(r.Context(), id)
		persisted, err := settle(err)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mutation{
			Persisted: persisted,
			Result:    toggleResponse{ProductID: id, Present: present, Items: sess.Store.Comparison()},
		})
	}
}

func ComparisonClear(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		persisted, err := settle(sess.Store.ClearComparison(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mutation{Persisted: persisted, Result: newComparisonResponse(sess.Store)})
	}
}

// Badges returns the navigation counters.
func Badges(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess.Store.Badges())
	}
}
