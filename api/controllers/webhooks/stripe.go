package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/offerpay-backend/api/responses"
	"github.com/angelmondragon/offerpay-backend/internal/ingress"
	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
)

// PaymentHandler settles a verified payment event.
type PaymentHandler interface {
	Handle(ctx context.Context, event *settlement.PaymentEvent) (*ingress.Result, error)
}

type stripeVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// StripeWebhook handles payment_intent.succeeded and charge.refunded events.
func StripeWebhook(svc PaymentHandler, verifier stripeVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe verifier unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := verifier.ConstructEvent(payload, sigHeader)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, ingress.ErrInvalidSignature.Message()))
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"stripe_event_id":   event.ID,
				"stripe_event_type": string(event.Type),
			})
		}

		paymentEvent, err := ingress.FromStripeEvent(&event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Handle(ctx, paymentEvent)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "outcome", result.Outcome), "stripe event processed")
		}
		responses.WriteSuccess(w, result)
	}
}
