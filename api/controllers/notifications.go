package controllers

import (
	"net/http"

	"github.com/toolshop/storefront/api/responses"
	"github.com/toolshop/storefront/internal/notify"
	"github.com/toolshop/storefront/pkg/logger"
)

type notificationsResponse struct {
	Items   []notify.Notification `json:"items"`
	Dropped int                   `json:"dropped"`
}

// NotificationsDrain returns and clears the pending toasts of the session.
func NotificationsDrain(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := currentSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notificationsResponse{
			Items:   sess.Inbox.Drain(),
			Dropped: sess.Inbox.Dropped(),
		})
	}
}
