package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coinflow/payments/internal/infra/storage"
)

// NewRouter wires the full HTTP surface.
func NewRouter(h *PaymentHandler, merchants storage.MerchantRepository, health func() error, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(MerchantAuth(merchants))
			r.Post("/create", h.HandleCreate)
			r.Post("/refund", h.HandleRefund)
		})

		r.Group(func(r chi.Router) {
			r.Use(WidgetAuth(merchants))
			r.Post("/widget/create", h.HandleCreate)
		})

		r.Post("/process", h.HandleProcess)
		r.Get("/status/{id}", h.HandleStatus)
		r.Get("/public/{id}", h.HandlePublicStatus)
		r.Post("/{id}/wallet", h.HandleSetWallet)
	})

	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Use(MerchantAuth(merchants))
		r.Post("/plan", h.HandleChangePlan)
	})

	return r
}
