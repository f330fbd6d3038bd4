package middleware

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"coursehub/internal/models"
	"coursehub/internal/security"
)

type IdentityProvider interface {
	CurrentUser(r *http.Request) (*models.User, error)
}

type Flasher interface {
	AddFlash(w http.ResponseWriter, r *http.Request, category, message string) error
}

// Identify loads the session's user into the request context. Lookup
// failures are logged and the request continues as anonymous.
func Identify(sessions IdentityProvider, log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := sessions.CurrentUser(r)
			if err != nil {
				log.Error().Err(err).
					Str("request_id", RequestIDFromContext(r.Context())).
					Msg("load session user failed")
			}
			if user != nil {
				r = r.WithContext(security.WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireLogin redirects anonymous requests to the login page.
func RequireLogin(flash Flasher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := security.UserFromContext(r.Context()); !ok {
				_ = flash.AddFlash(w, r, security.FlashInfo, "Please log in to access this page.")
				target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole hands requests whose user lacks role to forbidden. It expects
// RequireLogin to run first.
func RequireRole(role string, forbidden http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := security.UserFromContext(r.Context())
			if !ok || user.Role != role {
				forbidden.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
