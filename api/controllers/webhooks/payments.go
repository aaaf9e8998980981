package webhooks

import (
	"io"
	"net/http"

	"github.com/angelmondragon/offerpay-backend/api/responses"
	"github.com/angelmondragon/offerpay-backend/api/validators"
	"github.com/angelmondragon/offerpay-backend/internal/ingress"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
)

// PaymentsWebhook accepts gateway-neutral envelopes signed with the shared
// HMAC secret in the X-Signature header.
func PaymentsWebhook(svc PaymentHandler, signingSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		signature := r.Header.Get(ingress.SignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "signature missing"))
			return
		}
		if err := ingress.VerifySignature(signingSecret, payload, signature); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var envelope ingress.Envelope
		if err := validators.DecodeJSONBytes(payload, &envelope); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"envelope_id":   envelope.ID,
				"envelope_type": envelope.Type,
			})
		}

		event, err := envelope.PaymentEvent()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Handle(ctx, &event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "outcome", result.Outcome), "payment envelope processed")
		}
		responses.WriteSuccess(w, result)
	}
}
