package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-session-auth/internal/application/ledger"
	"github.com/go-session-auth/internal/application/session"
	"github.com/go-session-auth/internal/config"
	"github.com/go-session-auth/internal/domain"
	"github.com/go-session-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-session-auth/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds the application services the router exposes.
type Deps struct {
	Sessions     session.Service
	Ledger       ledger.Service
	HealthChecks map[string]handler.Check
}

// NewRouter builds and returns the application router. The returned stop
// func releases background resources held by middleware.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, func()) {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, per client IP on the session flow.
	sessionRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler(deps.HealthChecks, cfg.StoreTimeout)
	sessionH := handler.NewSessionHandler(deps.Sessions)
	tokenH := handler.NewAccessTokenHandler(deps.Ledger)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		// Session flow: carried by session tokens, not access tokens.
		r.Group(func(r chi.Router) {
			r.Use(sessionRL.Limit)
			r.Use(appmiddleware.ClientAuth(cfg.ClientID, cfg.ClientSecret))

			r.Post("/sessions/{purpose}/{accountType}", sessionH.Create)
			r.Get("/sessions", sessionH.Inspect)
			r.Delete("/sessions", sessionH.Cancel)
			r.Post("/sessions/submit", sessionH.Submit)
			r.Put("/signin/fields/{field}", sessionH.AddField(domain.PurposeSignin))
			r.Put("/signup/fields/{field}", sessionH.AddField(domain.PurposeSignup))
		})

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Ledger))

			r.Get("/access-tokens/current", tokenH.Current)
			r.Post("/access-tokens/logout", tokenH.Logout)

			// Only cohabiting types can hold several records.
			r.With(appmiddleware.RequireAccountType(
				domain.AccountPersonal, domain.AccountBusiness, domain.AccountDependent,
			)).Post("/access-tokens/revoke-others", tokenH.RevokeOthers)
		})
	})

	return r, sessionRL.Stop
}
