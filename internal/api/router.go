package api

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/prepaid-ledger/internal/api/handlers"
	"github.com/baharkarakas/prepaid-ledger/internal/auth"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/metrics"
	"github.com/baharkarakas/prepaid-ledger/internal/middleware"
	"github.com/baharkarakas/prepaid-ledger/internal/ratelimit"
	"github.com/baharkarakas/prepaid-ledger/internal/services"
)

// RateRules are the per-client throttles applied by the router.
type RateRules struct {
	Pin ratelimit.Rule
	API ratelimit.Rule
}

type RouterDeps struct {
	Log            *slog.Logger
	Clock          clock.Clock
	AllowedOrigins []string
	// TrustedProxies may set the client address via forwarding headers.
	TrustedProxies []netip.Prefix

	Authority *auth.Authority
	Limiter   ratelimit.Limiter
	Rules     RateRules

	Sessions *services.SessionService
	Accounts *services.AccountService
	Pins     *services.PinGuard
	Ledger   *services.LedgerService
	TxnLog   *services.TransactionLog
	Balances *services.BalanceService
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}

	authH := handlers.NewAuthHandler(d.Sessions)
	pinH := handlers.NewPinHandler(d.Pins, d.Accounts)
	txnH := handlers.NewTransactionHandler(d.Ledger, d.TxnLog)
	custH := handlers.NewCustomerHandler(d.Balances)

	r := chi.NewRouter()
	r.Use(middleware.TrustedRealIP(d.TrustedProxies), middleware.RequestID, middleware.Recover(d.Log), middleware.HTTPMetrics(d.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.PinHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authMw := middleware.Auth(d.Authority)

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		// login throttling lives in SessionService so a success can clear it
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)
		r.With(authMw).Post("/auth/logout", authH.Logout)

		r.Route("/auth/pin", func(r chi.Router) {
			r.Use(authMw, middleware.RateLimit(d.Limiter, d.Rules.Pin, d.Clock))
			r.Post("/verify", pinH.Verify)
			r.Post("/change", pinH.Change)
			r.Post("/reset", pinH.Reset)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw, middleware.RateLimit(d.Limiter, d.Rules.API, d.Clock))

			// ---------- transactions ----------
			r.Post("/transactions/charge", txnH.Charge)
			r.Post("/transactions/deduct", txnH.Deduct)
			r.With(middleware.RequirePIN(d.Pins)).Post("/transactions/cancel", txnH.Cancel)
			r.Get("/transactions/{id}", txnH.Get)

			// ---------- customers ----------
			r.Get("/customers/{id}/transactions", txnH.ListByCustomer)
			r.Get("/customers/{id}/balance", custH.Balance)
			r.Get("/customers/{id}/reconcile", custH.Reconcile)
		})
	})

	return r
}
