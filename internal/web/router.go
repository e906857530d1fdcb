package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Catalog  *CatalogHandler
	Cart     *CartHandler
	Account  *AccountHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Sessions SessionBinder
	Timeout  time.Duration
}

// NewRouter assembles the storefront HTTP surface. Cart and checkout
// routes all sit behind the session middleware so a principal (and with
// it a cart) always exists before a handler runs.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware(cfg.Sessions))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", cfg.Catalog.List)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Cart.Get)
			r.Post("/items", cfg.Cart.AddItem)
			r.Delete("/items/{item_id}", cfg.Cart.RemoveItem)
			r.Delete("/", cfg.Cart.Clear)
		})

		r.Post("/register", cfg.Account.Register)
		r.Post("/login", cfg.Account.Login)
		r.Post("/logout", cfg.Account.Logout)

		r.Post("/checkout", cfg.Checkout.Initiate)

		r.With(RequireAuth).Get("/orders", cfg.Orders.List)
	})

	// Provider return URLs
	r.Get("/checkout/success", cfg.Checkout.Success)
	r.Get("/checkout/cancel", cfg.Checkout.Cancel)

	return r
}
