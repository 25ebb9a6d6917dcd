package httpapi

import (
	"context"
	"net/http"

	"github.com/goliatone/go-userdash/components/dashboard"
)

// ClientCookie identifies the browser across requests. It never carries the
// session token.
const ClientCookie = "userdash_client"

type clientIDKey struct{}

// SessionMiddleware resolves the browser's session store and attaches it to
// the request context. Browsers without a cookie get a fresh client id.
func SessionMiddleware(manager *dashboard.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var current string
			if cookie, err := r.Cookie(ClientCookie); err == nil {
				current = cookie.Value
			}
			clientID, store := manager.Ensure(current)
			if clientID != current {
				http.SetCookie(w, &http.Cookie{
					Name:     ClientCookie,
					Value:    clientID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := dashboard.ContextWithSession(r.Context(), store)
			ctx = context.WithValue(ctx, clientIDKey{}, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Viewer builds the viewer for a request that went through SessionMiddleware.
// It panics with dashboard.ErrNoSessionProvider otherwise.
func Viewer(r *http.Request) dashboard.ViewerContext {
	store := dashboard.MustSession(r.Context())
	clientID, _ := r.Context().Value(clientIDKey{}).(string)
	return dashboard.ViewerContext{ClientID: clientID, Store: store}
}
