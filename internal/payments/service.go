package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/stripe/stripe-go/v84"

	"github.com/gigflowhq/gigflow-backend/internal/orders"
	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
	"github.com/gigflowhq/gigflow-backend/pkg/metrics"
)

const (
	// Outcomes recorded on the webhook counter.
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"

	sessionRetryAttempts = 3
	sessionRetryBase     = 200 * time.Millisecond
)

type orderGateway interface {
	Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error)
	AttachCheckout(ctx context.Context, orderID uuid.UUID, checkoutID string) error
	MarkPaid(ctx context.Context, input orders.MarkPaidInput) (*orders.MarkPaidResult, error)
}

// Service creates gateway checkout sessions and reconciles the events
// the gateway sends back.
type Service interface {
	CreateCheckout(ctx context.Context, input CreateCheckoutInput) (*CheckoutResult, error)
	HandleEvent(ctx context.Context, event *stripe.Event) (*EventResult, error)
}

type service struct {
	stripe  CheckoutClient
	orders  orderGateway
	guard   *IdempotencyGuard
	metrics *metrics.EventMetrics
	logg    *logger.Logger
}

// CreateCheckoutInput starts a payment for an existing order. Only the
// order's client may start one.
type CreateCheckoutInput struct {
	OrderID    uuid.UUID
	ActorID    uuid.UUID
	SuccessURL string
	CancelURL  string
}

// CheckoutResult carries the hosted payment page the client is sent to.
type CheckoutResult struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// EventResult reports what a webhook delivery did.
type EventResult struct {
	Outcome string
}

// NewService builds the payment service. The guard and metrics are
// optional; reconciliation stays correct without them.
func NewService(stripeClient CheckoutClient, orderSvc orderGateway, guard *IdempotencyGuard, eventMetrics *metrics.EventMetrics, logg *logger.Logger) (Service, error) {
	if stripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe client required")
	}
	if orderSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders service required")
	}
	return &service{
		stripe:  stripeClient,
		orders:  orderSvc,
		guard:   guard,
		metrics: eventMetrics,
		logg:    logg,
	}, nil
}

// CreateCheckout opens a gateway checkout session for an unpaid order
// and records the session id so the webhook can find the order later.
func (s *service) CreateCheckout(ctx context.Context, input CreateCheckoutInput) (*CheckoutResult, error) {
	if input.SuccessURL == "" || input.CancelURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "success and cancel urls required")
	}

	order, err := s.orders.Get(ctx, input.ActorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the client pays for an order")
	}
	if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(input.SuccessURL),
		CancelURL:         stripe.String(input.CancelURL),
		ClientReferenceID: stripe.String(order.ID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(order.Currency),
					UnitAmount: stripe.Int64(order.Amount.Shift(2).IntPart()),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(orderProductName(order)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("order_id", order.ID.String())

	var sess *stripe.CheckoutSession
	backoff := retry.WithMaxRetries(sessionRetryAttempts, retry.NewExponential(sessionRetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		created, err := s.stripe.CreateSession(ctx, params)
		if err != nil {
			if isRetryableStripeError(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		sess = created
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	if err := s.orders.AttachCheckout(ctx, order.ID, sess.ID); err != nil {
		return nil, err
	}
	return &CheckoutResult{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

// HandleEvent reconciles a verified gateway event against the order
// state. Redeliveries and unknown event types are acknowledged without
// side effects.
func (s *service) HandleEvent(ctx context.Context, event *stripe.Event) (*EventResult, error) {
	if event == nil || event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event data required")
	}
	eventType := string(event.Type)

	if s.guard != nil && event.ID != "" {
		seen, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			// Redis being down must not stop reconciliation; the
			// conditional write below still dedupes.
			if s.logg != nil {
				s.logg.Warn(ctx, "idempotency check failed: "+err.Error())
			}
		} else if seen {
			s.count(eventType, OutcomeDuplicate)
			return &EventResult{Outcome: OutcomeDuplicate}, nil
		}
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		result, err := s.handleCheckoutCompleted(ctx, event)
		if err != nil {
			s.count(eventType, OutcomeFailed)
			s.releaseGuard(ctx, event.ID)
			return nil, err
		}
		s.count(eventType, result.Outcome)
		return result, nil
	default:
		s.count(eventType, OutcomeIgnored)
		return &EventResult{Outcome: OutcomeIgnored}, nil
	}
}

func (s *service) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) (*EventResult, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		// Async payment methods complete the session before the money
		// clears; wait for the follow-up event.
		return &EventResult{Outcome: OutcomeIgnored}, nil
	}

	paymentRef := ""
	if sess.PaymentIntent != nil {
		paymentRef = sess.PaymentIntent.ID
	}

	result, err := s.orders.MarkPaid(ctx, orders.MarkPaidInput{
		CheckoutID: sess.ID,
		PaymentRef: paymentRef,
	})
	if err != nil {
		return nil, err
	}
	if !result.Applied {
		return &EventResult{Outcome: OutcomeDuplicate}, nil
	}
	return &EventResult{Outcome: OutcomeApplied}, nil
}

func (s *service) releaseGuard(ctx context.Context, eventID string) {
	if s.guard == nil || eventID == "" {
		return
	}
	if err := s.guard.Delete(ctx, eventID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "release idempotency mark failed: "+err.Error())
	}
}

func (s *service) count(eventType, outcome string) {
	s.metrics.IncWebhookEvent(eventType, outcome)
}

func orderProductName(order *models.Order) string {
	if order.Title != "" {
		return order.Title
	}
	return "Gig order"
}

// isRetryableStripeError treats rate limits and gateway-side errors as
// transient.
func isRetryableStripeError(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		// Network errors from the HTTP layer are worth retrying.
		return true
	}
	switch stripeErr.HTTPStatusCode {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
