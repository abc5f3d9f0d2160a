package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gigflowhq/gigflow-backend/api/controllers"
	webhookcontrollers "github.com/gigflowhq/gigflow-backend/api/controllers/webhooks"
	"github.com/gigflowhq/gigflow-backend/api/middleware"
	"github.com/gigflowhq/gigflow-backend/internal/connections"
	"github.com/gigflowhq/gigflow-backend/internal/messages"
	"github.com/gigflowhq/gigflow-backend/internal/notifications"
	"github.com/gigflowhq/gigflow-backend/internal/orders"
	"github.com/gigflowhq/gigflow-backend/internal/payments"
	"github.com/gigflowhq/gigflow-backend/internal/proposals"
	"github.com/gigflowhq/gigflow-backend/internal/realtime"
	"github.com/gigflowhq/gigflow-backend/pkg/config"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
	"github.com/gigflowhq/gigflow-backend/pkg/redis"
	"github.com/gigflowhq/gigflow-backend/pkg/stripe"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         *redis.Client
	Stripe        *stripe.Client
	Connections   connections.Service
	Proposals     proposals.Service
	Orders        orders.Service
	Payments      payments.Service
	Notifications notifications.Service
	Messages      messages.Service
	Realtime      realtime.Subscriber
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	probes := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		probes["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, probes))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.Payments, deps.Stripe, logg))
	})

	var limiter middleware.FixedWindowStore
	var idemStore redis.IdempotencyStore
	if deps.Redis != nil {
		limiter = deps.Redis
		idemStore = deps.Redis
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(limiter, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/connections", func(r chi.Router) {
			r.Post("/request", controllers.RequestConnection(deps.Connections, logg))
			r.Put("/accept/{id}", controllers.RespondConnection(deps.Connections, true, logg))
			r.Put("/reject/{id}", controllers.RespondConnection(deps.Connections, false, logg))
			r.Delete("/{otherId}", controllers.RemoveConnection(deps.Connections, logg))
			r.Get("/", controllers.ListConnections(deps.Connections, logg))
			r.Get("/status/{otherId}", controllers.ConnectionStatus(deps.Connections, logg))
		})

		r.Route("/proposals", func(r chi.Router) {
			asFreelancer := middleware.RequireRole(string(enums.UserRoleFreelancer), logg)
			asClient := middleware.RequireRole(string(enums.UserRoleClient), logg)

			r.With(asFreelancer).Post("/", controllers.SubmitProposal(deps.Proposals, logg))
			r.With(asClient).Get("/gig/{gigId}", controllers.ListGigProposals(deps.Proposals, logg))
			r.With(asFreelancer).Get("/mine", controllers.ListMyProposals(deps.Proposals, logg))
			r.With(asClient).Put("/{id}/status", controllers.DecideProposal(deps.Proposals, logg))
			r.With(asFreelancer).Put("/{id}/complete", controllers.CompleteProposal(deps.Proposals, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{id}", controllers.OrderDetail(deps.Orders, logg))
			r.Put("/{id}/status", controllers.TransitionOrder(deps.Orders, logg))
			r.Put("/{id}/complete", controllers.CompleteOrder(deps.Orders, logg))
		})

		r.Post("/payments/checkout-session", controllers.CreateCheckoutSession(deps.Orders, deps.Payments, cfg.Stripe, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(deps.Notifications, logg))
			r.Put("/{id}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Put("/mark-all-read", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", controllers.SendMessage(deps.Messages, logg))
			r.Get("/{otherId}", controllers.Conversation(deps.Messages, logg))
		})

		r.Get("/realtime/subscribe", controllers.RealtimeSubscribe(deps.Realtime, logg))
	})

	return r
}
