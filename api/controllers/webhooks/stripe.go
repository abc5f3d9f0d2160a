package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/gigflowhq/gigflow-backend/api/responses"
	"github.com/gigflowhq/gigflow-backend/internal/payments"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
)

const maxWebhookBody = 1 << 16

type stripeEventHandler interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (*payments.EventResult, error)
}

type signingSecretSource interface {
	SigningSecret() string
}

// StripeWebhook receives gateway deliveries. Signature failures are
// rejected with a non-retryable 400; duplicate deliveries and ignored
// event types acknowledge with 200 so the gateway stops resending.
func StripeWebhook(svc stripeEventHandler, client signingSecretSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "verify signature"))
			return
		}

		result, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"event_id":   event.ID,
				"event_type": string(event.Type),
				"outcome":    result.Outcome,
			})
			logg.Info(ctx, "stripe event processed")
		}
		responses.WriteSuccess(w, map[string]string{"outcome": result.Outcome})
	}
}
