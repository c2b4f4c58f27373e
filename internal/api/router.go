package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(h *Handler, mw *Middleware) http.Handler {
	mux := chi.NewRouter()
	mux.Use(mw.Log, mw.Recover, mw.Cors)

	mux.Route("/api", func(r chi.Router) {
		r.HandleFunc("/health", h.HealthHandler)

		r.Route("/payers", func(r chi.Router) {
			r.Post("/", h.CreatePayer)
			r.Get("/", h.Payers)
			r.Get("/{payer_id}", h.Payer)
			r.Post("/{payer_id}/deposits", h.Deposit)
			r.Post("/{payer_id}/withdrawals", h.Withdraw)
			r.Get("/{payer_id}/transactions", h.Transactions)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Patch("/items/{item_id}/credentials", h.UpdateCartItemCredentials)
			r.Delete("/items/{item_id}", h.RemoveCartItem)
		})

		r.Post("/checkout", h.Checkout)

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", h.Purchases)
			r.Get("/{purchase_id}", h.Purchase)
			r.Get("/{purchase_id}/invoice", h.PurchaseInvoice)
			r.Post("/{purchase_id}/cancel", h.CancelPurchase)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/services", h.CatalogServices)
			r.Get("/services/{service_id}", h.CatalogService)
		})

		r.Route("/internal", func(r chi.Router) {
			r.Use(mw.APIKeyAuth)
			r.Post("/purchases/{purchase_id}/paid", h.MarkPurchasePaid)
		})
	})

	return mux
}
