package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shampsdev/gopadel-sub001/internal/catalog"
	"github.com/shampsdev/gopadel-sub001/internal/club"
	"github.com/shampsdev/gopadel-sub001/internal/config"
	"github.com/shampsdev/gopadel-sub001/internal/http/handlers"
	"github.com/shampsdev/gopadel-sub001/internal/identity"
	"github.com/shampsdev/gopadel-sub001/internal/leaderboard"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/payment"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
	"github.com/shampsdev/gopadel-sub001/internal/registration"
	"github.com/shampsdev/gopadel-sub001/internal/waitlist"
)

// Services are the collaborators the API exposes. Payments and Inngest may be nil.
type Services struct {
	DB            handlers.Pinger
	Members       club.ClubStore
	Events        *catalog.Service
	Registrations registration.Service
	Waitlist      *waitlist.Manager
	Payments      *payment.Coordinator
	Leaderboard   *leaderboard.Assigner
	Identity      identity.Resolver
	// Lifecycle consumes pushed Pub/Sub messages.
	Lifecycle      pubsub.Handler
	PubSub         pubsub.PubSubClient
	SlackFormatter handlers.SummaryFormatter
	Inngest        http.Handler
}

type Server struct {
	Services
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         chi.Router
}
