package payments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/gigflowhq/gigflow-backend/internal/orders"
	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
)

type fakeCheckoutClient struct {
	failures int
	calls    int
	session  *stripe.CheckoutSession
	err      error
}

func (f *fakeCheckoutClient) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.failures {
		return nil, &stripe.Error{HTTPStatusCode: 503}
	}
	if f.session != nil {
		return f.session, nil
	}
	return &stripe.CheckoutSession{ID: "cs_test_abc", URL: "https://checkout.example/cs_test_abc"}, nil
}

type fakeOrderGateway struct {
	order       *models.Order
	attached    map[uuid.UUID]string
	markPaid    []orders.MarkPaidInput
	paidApplied bool
	markErr     error
}

func newFakeOrderGateway(order *models.Order) *fakeOrderGateway {
	return &fakeOrderGateway{order: order, attached: make(map[uuid.UUID]string), paidApplied: true}
}

func (f *fakeOrderGateway) Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	if f.order == nil || f.order.ID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if f.order.ClientID != actorID && f.order.FreelancerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not involve user")
	}
	return f.order, nil
}

func (f *fakeOrderGateway) AttachCheckout(ctx context.Context, orderID uuid.UUID, checkoutID string) error {
	f.attached[orderID] = checkoutID
	return nil
}

func (f *fakeOrderGateway) MarkPaid(ctx context.Context, input orders.MarkPaidInput) (*orders.MarkPaidResult, error) {
	if f.markErr != nil {
		return nil, f.markErr
	}
	f.markPaid = append(f.markPaid, input)
	return &orders.MarkPaidResult{Order: f.order, Applied: f.paidApplied}, nil
}

type fakeIdemStore struct {
	keys map[string]bool
	err  error
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{keys: make(map[string]bool)}
}

func (f *fakeIdemStore) Get(ctx context.Context, key string) (string, error) { return "", nil }

func (f *fakeIdemStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return "gf:idempotency:" + scope + ":" + id
}

func (f *fakeIdemStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func pendingOrder(client uuid.UUID) *models.Order {
	return &models.Order{
		ID:           uuid.New(),
		GigID:        uuid.New(),
		ClientID:     client,
		FreelancerID: uuid.New(),
		Status:       enums.OrderStatusPending,
		Amount:       decimal.RequireFromString("120.50"),
		Currency:     "usd",
	}
}

func checkoutCompletedEvent(t *testing.T, sessionID string, paid bool) *stripe.Event {
	t.Helper()
	status := stripe.CheckoutSessionPaymentStatusUnpaid
	if paid {
		status = stripe.CheckoutSessionPaymentStatusPaid
	}
	raw, err := json.Marshal(map[string]any{
		"id":             sessionID,
		"payment_status": status,
		"payment_intent": map[string]any{"id": "pi_123"},
	})
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_" + sessionID,
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestCreateCheckoutAttachesSession(t *testing.T) {
	client := uuid.New()
	order := pendingOrder(client)
	gateway := newFakeOrderGateway(order)
	stripeClient := &fakeCheckoutClient{}
	svc, err := NewService(stripeClient, gateway, nil, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{
		OrderID:    order.ID,
		ActorID:    client,
		SuccessURL: "https://app.example/success",
		CancelURL:  "https://app.example/cancel",
	})
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if result.SessionID != "cs_test_abc" || result.CheckoutURL == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if gateway.attached[order.ID] != "cs_test_abc" {
		t.Fatalf("session should be attached to the order")
	}
}

func TestCreateCheckoutRetriesTransientFailures(t *testing.T) {
	client := uuid.New()
	order := pendingOrder(client)
	gateway := newFakeOrderGateway(order)
	stripeClient := &fakeCheckoutClient{failures: 2}
	svc, _ := NewService(stripeClient, gateway, nil, nil, nil)

	_, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{
		OrderID:    order.ID,
		ActorID:    client,
		SuccessURL: "https://app.example/success",
		CancelURL:  "https://app.example/cancel",
	})
	if err != nil {
		t.Fatalf("transient failures should be retried: %v", err)
	}
	if stripeClient.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", stripeClient.calls)
	}
}

func TestCreateCheckoutDoesNotRetryCardErrors(t *testing.T) {
	client := uuid.New()
	order := pendingOrder(client)
	gateway := newFakeOrderGateway(order)
	stripeClient := &fakeCheckoutClient{err: &stripe.Error{HTTPStatusCode: 400}}
	svc, _ := NewService(stripeClient, gateway, nil, nil, nil)

	_, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{
		OrderID:    order.ID,
		ActorID:    client,
		SuccessURL: "https://app.example/success",
		CancelURL:  "https://app.example/cancel",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if stripeClient.calls != 1 {
		t.Fatalf("client errors must not be retried, got %d attempts", stripeClient.calls)
	}
}

func TestCreateCheckoutRejectsNonClientAndSettledOrders(t *testing.T) {
	client := uuid.New()
	order := pendingOrder(client)
	gateway := newFakeOrderGateway(order)
	svc, _ := NewService(&fakeCheckoutClient{}, gateway, nil, nil, nil)

	_, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{
		OrderID:    order.ID,
		ActorID:    order.FreelancerID,
		SuccessURL: "https://app.example/s",
		CancelURL:  "https://app.example/c",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("freelancer cannot pay, got %v", err)
	}

	order.Status = enums.OrderStatusPaid
	_, err = svc.CreateCheckout(context.Background(), CreateCheckoutInput{
		OrderID:    order.ID,
		ActorID:    client,
		SuccessURL: "https://app.example/s",
		CancelURL:  "https://app.example/c",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("paid orders cannot start checkout, got %v", err)
	}
}

func TestHandleEventAppliesPayment(t *testing.T) {
	client := uuid.New()
	order := pendingOrder(client)
	gateway := newFakeOrderGateway(order)
	svc, _ := NewService(&fakeCheckoutClient{}, gateway, nil, nil, nil)

	result, err := svc.HandleEvent(context.Background(), checkoutCompletedEvent(t, "cs_1", true))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}
	if len(gateway.markPaid) != 1 || gateway.markPaid[0].CheckoutID != "cs_1" || gateway.markPaid[0].PaymentRef != "pi_123" {
		t.Fatalf("mark paid not called correctly: %+v", gateway.markPaid)
	}
}

func TestHandleEventIgnoresUnpaidSessionsAndOtherTypes(t *testing.T) {
	gateway := newFakeOrderGateway(pendingOrder(uuid.New()))
	svc, _ := NewService(&fakeCheckoutClient{}, gateway, nil, nil, nil)

	result, err := svc.HandleEvent(context.Background(), checkoutCompletedEvent(t, "cs_2", false))
	if err != nil || result.Outcome != OutcomeIgnored {
		t.Fatalf("unpaid session should be ignored: %v %+v", err, result)
	}
	if len(gateway.markPaid) != 0 {
		t.Fatalf("no settlement for unpaid sessions")
	}

	raw := json.RawMessage(`{}`)
	result, err = svc.HandleEvent(context.Background(), &stripe.Event{
		ID:   "evt_other",
		Type: "customer.created",
		Data: &stripe.EventData{Raw: raw},
	})
	if err != nil || result.Outcome != OutcomeIgnored {
		t.Fatalf("unknown types should be ignored: %v %+v", err, result)
	}
}

func TestHandleEventGuardsDuplicateDeliveries(t *testing.T) {
	gateway := newFakeOrderGateway(pendingOrder(uuid.New()))
	guard, err := NewIdempotencyGuard(newFakeIdemStore(), time.Hour, "stripe")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	svc, _ := NewService(&fakeCheckoutClient{}, gateway, guard, nil, nil)

	event := checkoutCompletedEvent(t, "cs_3", true)
	if _, err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	result, err := svc.HandleEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if result.Outcome != OutcomeDuplicate {
		t.Fatalf("redelivery should be a duplicate, got %s", result.Outcome)
	}
	if len(gateway.markPaid) != 1 {
		t.Fatalf("redelivery must not settle again")
	}
}

func TestHandleEventReleasesGuardOnFailure(t *testing.T) {
	gateway := newFakeOrderGateway(pendingOrder(uuid.New()))
	gateway.markErr = errors.New("db down")
	store := newFakeIdemStore()
	guard, _ := NewIdempotencyGuard(store, time.Hour, "stripe")
	svc, _ := NewService(&fakeCheckoutClient{}, gateway, guard, nil, nil)

	event := checkoutCompletedEvent(t, "cs_4", true)
	if _, err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatalf("expected failure")
	}
	if len(store.keys) != 0 {
		t.Fatalf("failed events must release the idempotency mark")
	}

	// The gateway retry can now get through.
	gateway.markErr = nil
	result, err := svc.HandleEvent(context.Background(), event)
	if err != nil || result.Outcome != OutcomeApplied {
		t.Fatalf("retry should apply: %v %+v", err, result)
	}
}

func TestHandleEventAppliedFalseIsDuplicate(t *testing.T) {
	gateway := newFakeOrderGateway(pendingOrder(uuid.New()))
	gateway.paidApplied = false
	svc, _ := NewService(&fakeCheckoutClient{}, gateway, nil, nil, nil)

	result, err := svc.HandleEvent(context.Background(), checkoutCompletedEvent(t, "cs_5", true))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if result.Outcome != OutcomeDuplicate {
		t.Fatalf("already-applied payments report duplicate, got %s", result.Outcome)
	}
}
