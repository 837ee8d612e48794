package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the HTTP surface. The request timeout applies both as
// chi middleware and as the per-handler context bound.
func NewRouter(
	cartHandler *CartHandler,
	checkoutHandler *CheckoutHandler,
	ordersHandler *OrdersHandler,
	requestTimeout time.Duration,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MockAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
			r.Post("/check", cartHandler.CheckCart)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.StartCheckout)
			r.Post("/{sessionID}/capture", checkoutHandler.CaptureCheckout)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{id}", ordersHandler.GetOrder)
		})
	})

	return r
}
