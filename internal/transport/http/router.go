package http

import (
	"net/http"

	"github.com/civic-issue-api/internal/application/device"
	"github.com/civic-issue-api/internal/application/issue"
	"github.com/civic-issue-api/internal/application/notification"
	"github.com/civic-issue-api/internal/application/user"
	"github.com/civic-issue-api/internal/application/vote"
	"github.com/civic-issue-api/internal/config"
	"github.com/civic-issue-api/internal/domain"
	"github.com/civic-issue-api/internal/infrastructure/classifier"
	"github.com/civic-issue-api/internal/infrastructure/dynamo"
	"github.com/civic-issue-api/internal/infrastructure/fcm"
	jwtinfra "github.com/civic-issue-api/internal/infrastructure/jwt"
	s3infra "github.com/civic-issue-api/internal/infrastructure/s3"
	"github.com/civic-issue-api/internal/infrastructure/smtp"
	"github.com/civic-issue-api/internal/infrastructure/sns"
	"github.com/civic-issue-api/internal/transport/http/handler"
	appmiddleware "github.com/civic-issue-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	IssueRepo        *dynamo.IssueRepo
	VoteRepo         *dynamo.VoteRepo
	DeviceTokenRepo  *dynamo.DeviceTokenRepo
	NotificationRepo *dynamo.NotificationRepo
	UserRepo         *dynamo.UserRepo
	S3Store          *s3infra.Store
	Classifier       classifier.Classifier
	PushSender       fcm.PushSender
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
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

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	notifSvc := notification.NewService(deps.NotificationRepo, deps.DeviceTokenRepo, deps.UserRepo, deps.PushSender, cfg.DispatchWorkers)
	issueSvc := issue.NewService(deps.IssueRepo, deps.Classifier, deps.S3Store, notifSvc, cfg.DuplicateRadiusMeters, cfg.DuplicateWindowDays)
	voteSvc := vote.NewService(deps.IssueRepo, deps.VoteRepo, notifSvc, deps.UserRepo, deps.SMSSender, deps.Mailer, cfg.EscalationThreshold)
	deviceSvc := device.NewService(deps.DeviceTokenRepo)
	userSvc := user.NewService(deps.UserRepo, deps.JWTProvider)

	healthH := handler.NewHealthHandler()
	issueH := handler.NewIssueHandler(issueSvc, voteSvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	deviceH := handler.NewDeviceHandler(deviceSvc)
	userH := handler.NewUserHandler(userSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/login", userH.Login)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/me", userH.Me)
			r.Get("/users/{id}", userH.Get)

			r.With(sensitiveRL.Limit).Post("/issues", issueH.Submit)
			r.Get("/issues", issueH.List)
			r.Get("/issues/nearby", issueH.Nearby)
			r.Get("/issues/{id}", issueH.Get)
			r.Post("/issues/{id}/votes", issueH.Vote)

			r.Get("/notifications", notifH.List)
			r.Put("/notifications/read-all", notifH.MarkAllAsRead)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)

			r.Post("/devices", deviceH.Register)
			r.Get("/devices", deviceH.List)
			r.Delete("/devices/{deviceId}", deviceH.Unregister)

			// Engineer/admin routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleEngineer, domain.RoleAdmin))

				r.Put("/issues/{id}/status", issueH.Transition)
			})

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users/by-role/{role}", userH.ListByRole)
			})
		})
	})

	return r
}
