package controllers

import (
	"net/http"

	"github.com/toolshop/storefront/api/responses"
	"github.com/toolshop/storefront/api/validators"
	"github.com/toolshop/storefront/pkg/enums"
	"github.com/toolshop/storefront/pkg/logger"
)

type themeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}

type themeResponse struct {
	Theme enums.Theme `json:"theme"`
}

func ThemeGet(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, themeResponse{Theme: sess.Preferences.Theme()})
	}
}

func ThemeSet(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload themeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		persisted, err := settle(sess.Preferences.Set(r.Context(), enums.Theme(payload.Theme)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mutation{Persisted: persisted, Result: themeResponse{Theme: sess.Preferences.Theme()}})
	}
}

func ThemeToggle(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		theme, err := sess.Preferences.Toggle(r.Context())
		persisted, err := settle(err)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mutation{Persisted: persisted, Result: themeResponse{Theme: theme}})
	}
}
