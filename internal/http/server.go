package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/shampsdev/gopadel-sub001/internal/config"
	"github.com/shampsdev/gopadel-sub001/internal/http/handlers"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
)

func NewServer(services Services, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Services:       services,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         chi.NewRouter(),
	}
	server.routes()
	return server
}

func (s *Server) routes() {
	r := s.Router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(paramsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", TokenHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if s.MetricsHandler != nil {
		r.Handle("/metrics", s.MetricsHandler)
	}
	r.Get("/health", handlers.HealthCheckHandler(s.DB))

	// Callbacks from the gateway, Pub/Sub, Slack and Inngest carry their own secrets, not user tokens.
	r.Post("/payments/callback", handlers.PaymentCallbackHandler(s.Payments, s.Cfg.Payment.WebhookSecret))
	if s.Lifecycle != nil && s.PubSub != nil {
		r.Post("/pubsub/{topic}", handlers.PubSubPushHandler(s.Lifecycle, s.PubSub, s.Cfg.PubSub.PushToken))
	}
	if s.SlackFormatter != nil {
		r.Method(http.MethodPost, "/slack/command/event",
			Chain(handlers.EventCommandHandler(s.Events, s.SlackFormatter), slackVerifier(s.Cfg.Slack.SigningSecret)))
	}
	if s.Inngest != nil {
		r.Handle("/api/inngest", s.Inngest)
	}

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(120, time.Minute))
		r.Use(authMiddleware(s.Identity))

		r.Route("/events", func(r chi.Router) {
			r.Post("/", handlers.CreateEventHandler(s.Events))
			r.Get("/", handlers.ListEventsHandler(s.Events))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handlers.GetEventHandler(s.Events))
				r.Patch("/", handlers.UpdateEventHandler(s.Events))
				r.Delete("/", handlers.CancelEventHandler(s.Events))

				r.Post("/registrations", handlers.OwnRegistrationHandler(s.Registrations.Register, http.StatusCreated))
				r.Get("/registrations", handlers.ListRegistrationsHandler(s.Registrations))
				r.Post("/registrations/cancel", handlers.OwnRegistrationHandler(s.Registrations.Cancel, http.StatusOK))
				r.Post("/registrations/reactivate", handlers.OwnRegistrationHandler(s.Registrations.Reactivate, http.StatusOK))
				r.Post("/registrations/{userId}/approve", handlers.OrganizerRegistrationHandler(s.Registrations.Approve))
				r.Post("/registrations/{userId}/reject", handlers.OrganizerRegistrationHandler(s.Registrations.Reject))

				r.Post("/waitlist", handlers.JoinWaitlistHandler(s.Waitlist))
				r.Delete("/waitlist", handlers.LeaveWaitlistHandler(s.Waitlist))
				r.Get("/waitlist", handlers.ListWaitlistHandler(s.Waitlist))
				r.Post("/waitlist/promote", handlers.PromoteWaitlistHandler(s.Waitlist))

				r.Get("/leaderboard", handlers.GetLeaderboardHandler(s.Leaderboard))
				r.Put("/leaderboard", handlers.SetLeaderboardHandler(s.Leaderboard))
			})
		})

		r.Patch("/tournaments/{id}", handlers.UpdateEventHandler(s.Events))
		r.Post("/tournaments/{id}/payment", handlers.CreatePaymentHandler(s.Payments, s.Cfg.Payment.ReturnURL))

		r.Get("/users/me/registrations", handlers.MyRegistrationsHandler(s.Registrations))
		r.Get("/members", handlers.ListMembersHandler(s.Members))
		r.Put("/members/{id}", handlers.UpsertMemberHandler(s.Members))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
