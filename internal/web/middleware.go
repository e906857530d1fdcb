package web

import (
	"context"
	"log"
	"net/http"

	"github.com/Julien-B-py/online-shop/internal/cartstore"
	"github.com/google/uuid"
)

type ctxKey int

const principalKey ctxKey = 0

const sessionCookie = "shop_session"

// SessionMiddleware guarantees every request carries a principal: an
// existing session cookie is resolved against the account binding, a
// missing one gets a fresh anonymous token. This is the guard that makes
// sure a cart (possibly empty) exists before any cart handler runs.
func SessionMiddleware(sessions SessionBinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(sessionCookie); err == nil {
				token = cookie.Value
			}
			if token == "" {
				token = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			accountID, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				// A broken binding store demotes the shopper to
				// anonymous rather than failing the request.
				log.Printf("session resolve error: %v", err)
				accountID = 0
			}

			p := cartstore.Principal{Session: token, Account: accountID}
			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFromContext(ctx context.Context) cartstore.Principal {
	if p, ok := ctx.Value(principalKey).(cartstore.Principal); ok {
		return p
	}
	return cartstore.Principal{}
}

// RequireAuth rejects requests whose principal is not logged in.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !principalFromContext(r.Context()).Authenticated() {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
