package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"rbeam/internal/api/middleware"
	"rbeam/internal/config"
	"rbeam/internal/core/bans"
	"rbeam/internal/core/follows"
	"rbeam/internal/core/labels"
	"rbeam/internal/core/mail"
	"rbeam/internal/core/market"
	"rbeam/internal/core/notifications"
	"rbeam/internal/core/profiles"
	"rbeam/internal/core/relationships"
	"rbeam/internal/metrics"
)

// Deps carries every service the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Profiles      profiles.Service
	Follows       follows.Service
	Relationships relationships.Service
	Notifications notifications.Service
	Bans          bans.Service
	Mail          mail.Service
	Market        market.Service
	Labels        labels.Service
}

// New assembles the router.
func New(deps Deps) http.Handler {
	auth := middleware.NewAuth(deps.Profiles)
	limiter := middleware.NewRateLimiter(300, time.Minute)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RealIP(deps.Config.RealIPHeader))
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(limiter.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/citrus", Citrus(deps.Config.CitrusID))

		// Peers address everything below /auth, profile reads and mail
		// delivery included.
		r.Route("/auth", func(r chi.Router) {
			AuthRoutes(r, deps.Profiles, auth, deps.Config.Secure)
			MarketRoutes(r, deps.Market, auth)
			r.Mount("/mail", MailRoutes(deps.Mail, auth))
			r.Mount("/relationships", RelationshipRoutes(deps.Follows, deps.Relationships, deps.Profiles, auth))
			r.Mount("/notifications", NotificationRoutes(deps.Notifications, auth))
			r.Mount("/bans", BanRoutes(deps.Bans, auth))
			r.Mount("/labels", LabelRoutes(deps.Labels, deps.Profiles, auth))
		})
	})

	return r
}
