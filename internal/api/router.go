package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/tappay-backend/internal/api/handlers"
	"github.com/baharkarakas/tappay-backend/internal/api/httpx"
	"github.com/baharkarakas/tappay-backend/internal/auth"
	"github.com/baharkarakas/tappay-backend/internal/config"
	"github.com/baharkarakas/tappay-backend/internal/gateway"
	"github.com/baharkarakas/tappay-backend/internal/metrics"
	"github.com/baharkarakas/tappay-backend/internal/middleware"
)

type RouterDeps struct {
	Cfg          config.Config
	Log          *slog.Logger
	Tokens       *auth.TokenManager
	Auth         *handlers.AuthHandler
	Payments     *handlers.PaymentHandler
	Transactions *handlers.TransactionHandler
	Fasstap      *gateway.Proxy
	Lynk         *gateway.Proxy
	Limiter      *gateway.Limiter
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id", "apikey", "x-client-info"},
		MaxAge:         300,
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", err.Error(), nil)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	// gateway proxies, called by POS clients and the terminal connectors
	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(d.Limiter.Middleware)
		r.Post("/fasstap-proxy", d.Fasstap.ServeHTTP)
		r.Post("/lynk-proxy", d.Lynk.ServeHTTP)
	})

	am := middleware.NewAuthMiddleware(d.Tokens, d.Cfg.Env)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(d.Cfg.APIRateLimit))
			r.Post("/auth/token", d.Auth.Token)
			r.Post("/auth/refresh", d.Auth.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(am.Auth, middleware.RequireRole(auth.RoleMerchant), middleware.RateLimit(d.Cfg.APIRateLimit))

			r.Route("/payments/sessions", func(r chi.Router) {
				r.Post("/", d.Payments.Create)
				r.Get("/{id}", d.Payments.Get)
				r.Post("/{id}/start", d.Payments.Start)
				r.Post("/{id}/retry", d.Payments.Retry)
				r.Post("/{id}/cancel", d.Payments.Cancel)
				r.Post("/{id}/reload", d.Payments.Reload)
				r.Delete("/{id}", d.Payments.Delete)
			})

			r.Get("/transactions", d.Transactions.List)
			r.Get("/transactions/{id}", d.Transactions.Get)
		})
	})

	return r
}
