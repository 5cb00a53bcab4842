package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"rfqmarket/internal/metrics"
	"rfqmarket/internal/middleware"
)

// Router builds the API. authn verifies the bearer token; limiter may be nil.
func (h *Handler) Router(authn func(http.Handler) http.Handler, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PeerAddr)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)
	if limiter != nil {
		r.Use(limiter.Handler)
	}

	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Route("/rfqs", func(r chi.Router) {
				r.Post("/", h.CreateRFQHandler)
				r.Get("/my-rfqs", h.MyRFQsHandler)
				r.Get("/pool", h.PoolHandler)
				r.Get("/accepted", h.AcceptedRFQsHandler)
				r.Get("/{id}", h.GetRFQHandler)
				r.Put("/{id}", h.UpdateRFQHandler)
				r.Delete("/{id}", h.DeleteRFQHandler)
				r.Get("/{id}/requests", h.ListRFQRequestsHandler)
				r.Post("/{id}/request", h.RequestRFQHandler)
				r.Post("/{id}/accept-manufacturer", h.AcceptManufacturerHandler)
				r.Post("/{id}/reject-manufacturer", h.RejectManufacturerHandler)
				r.Put("/{id}/status", h.UpdateStatusHandler)
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Get("/", h.ListInvitationsHandler)
				r.Post("/", h.CreateInvitationHandler)
				r.Post("/{id}/accept", h.AcceptInvitationHandler)
				r.Post("/{id}/decline", h.DeclineInvitationHandler)
			})

			r.Route("/ratings", func(r chi.Router) {
				r.Get("/", h.ListRatingsHandler)
				r.Post("/", h.CreateRatingHandler)
				r.Get("/rfq/{rfqId}", h.GetRFQRatingHandler)
			})

			r.Get("/users/profile", h.GetProfileHandler)
			r.Put("/users/profile", h.UpdateProfileHandler)

			r.Get("/search/rfqs", h.SearchRFQsHandler)
			r.Get("/search/manufacturers", h.SearchManufacturersHandler)

			r.Post("/upload", h.UploadHandler)
			r.Get("/files/proxy", h.ProxyFileHandler)
		})
	})
	return r
}
