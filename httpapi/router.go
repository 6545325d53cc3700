package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"creditbook/auth"
)

// NewRouter wires all public endpoints. Credit mutation routes require an
// authenticated principal; the status override and delete are admin-only.
func NewRouter(h *Handler, verifier TokenVerifier) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(authenticate(verifier))

			r.Route("/credits", func(r chi.Router) {
				r.Get("/buyer-credits", h.buyerCredits)
				r.Get("/seller-credits", h.sellerCredits)
				r.Get("/buyers/list", h.buyersList)
				r.Get("/buyer-summary", h.buyerSummary)
				r.Get("/seller-summary", h.sellerSummary)
				r.Get("/pending-requests", h.pendingRequests)
				r.Get("/buyer-by-phone/{phoneNumber}", h.buyerByPhone)
				r.Get("/buyer-history/{buyerID}", h.buyerHistory)

				r.With(requireRole(auth.RoleSeller)).Post("/create", h.createCredit)
				r.With(requireRole(auth.RoleBuyer)).Post("/{creditID}/approve", h.approveCredit)
				r.With(requireRole(auth.RoleBuyer)).Post("/{creditID}/reject", h.rejectCredit)
				r.Post("/{creditID}/payment", h.recordPayment)
				r.Post("/{creditID}/mark-paid", h.markPaid)

				r.With(requireRole(auth.RoleAdmin)).Put("/{creditID}/status", h.setStatus)
				r.With(requireRole(auth.RoleAdmin)).Delete("/{creditID}", h.deleteCredit)
			})
		})
	})

	return r
}
