package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/offerpay-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/offerpay-backend/api/controllers/webhooks"
	"github.com/angelmondragon/offerpay-backend/api/middleware"
	"github.com/angelmondragon/offerpay-backend/pkg/config"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
	"github.com/angelmondragon/offerpay-backend/pkg/stripe"
)

// maxWebhookBody bounds inbound gateway payloads.
const maxWebhookBody int64 = 1 << 20

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	metricsHandler http.Handler,
	paymentService webhookcontrollers.PaymentHandler,
	stripeVerifier *stripe.Verifier,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisP,
		}))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.MaxBodyBytes(maxWebhookBody))
		if stripeVerifier != nil {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(paymentService, stripeVerifier, logg))
		} else if logg != nil {
			logg.Warn(context.Background(), "stripe webhook disabled: no signing secret configured")
		}
		r.Post("/payments", webhookcontrollers.PaymentsWebhook(paymentService, cfg.Gateway.SigningSecret, logg))
	})

	return r
}
