package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/gigflowhq/gigflow-backend/internal/connections"
	"github.com/gigflowhq/gigflow-backend/internal/messages"
	"github.com/gigflowhq/gigflow-backend/internal/notifications"
	"github.com/gigflowhq/gigflow-backend/internal/orders"
	"github.com/gigflowhq/gigflow-backend/internal/payments"
	"github.com/gigflowhq/gigflow-backend/internal/proposals"
	"github.com/gigflowhq/gigflow-backend/internal/realtime"
	pkgAuth "github.com/gigflowhq/gigflow-backend/pkg/auth"
	"github.com/gigflowhq/gigflow-backend/pkg/config"
	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
	"github.com/gigflowhq/gigflow-backend/pkg/pagination"
	"github.com/gigflowhq/gigflow-backend/pkg/stripe"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubConnectionsService struct{}

func (stubConnectionsService) Request(ctx context.Context, input connections.RequestInput) (*models.Connection, error) {
	return &models.Connection{}, nil
}

func (stubConnectionsService) Respond(ctx context.Context, input connections.RespondInput) (*models.Connection, error) {
	return &models.Connection{}, nil
}

func (stubConnectionsService) Remove(ctx context.Context, actorID, otherID uuid.UUID) error {
	return nil
}

func (stubConnectionsService) StatusBetween(ctx context.Context, userA, userB uuid.UUID) (*connections.PairStatus, error) {
	return &connections.PairStatus{}, nil
}

func (stubConnectionsService) Get(ctx context.Context, actorID, connectionID uuid.UUID) (*models.Connection, error) {
	return &models.Connection{}, nil
}

func (stubConnectionsService) List(ctx context.Context, input connections.ListInput) (*pagination.Page[models.Connection], error) {
	return &pagination.Page[models.Connection]{}, nil
}

func (stubConnectionsService) CanMessage(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	return true, nil
}

type stubProposalsService struct{}

func (stubProposalsService) Submit(ctx context.Context, input proposals.SubmitInput) (*models.Proposal, error) {
	return &models.Proposal{}, nil
}

func (stubProposalsService) Decide(ctx context.Context, input proposals.DecideInput) (*models.Proposal, error) {
	return &models.Proposal{}, nil
}

func (stubProposalsService) Complete(ctx context.Context, proposalID, actorID uuid.UUID) (*proposals.CompleteResult, error) {
	return &proposals.CompleteResult{}, nil
}

func (stubProposalsService) Get(ctx context.Context, actorID, proposalID uuid.UUID) (*models.Proposal, error) {
	return &models.Proposal{}, nil
}

func (stubProposalsService) List(ctx context.Context, input proposals.ListInput) (*pagination.Page[models.Proposal], error) {
	return &pagination.Page[models.Proposal]{}, nil
}

func (stubProposalsService) SettlePaid(ctx context.Context, tx *gorm.DB, proposalID uuid.UUID, now time.Time) error {
	return nil
}

type stubOrdersService struct{}

func (stubOrdersService) CreateDirect(ctx context.Context, input orders.CreateDirectInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubOrdersService) Transition(ctx context.Context, input orders.TransitionInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubOrdersService) MarkPaid(ctx context.Context, input orders.MarkPaidInput) (*orders.MarkPaidResult, error) {
	return &orders.MarkPaidResult{}, nil
}

func (stubOrdersService) AttachCheckout(ctx context.Context, orderID uuid.UUID, checkoutID string) error {
	return nil
}

func (stubOrdersService) Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubOrdersService) List(ctx context.Context, input orders.ListInput) (*pagination.Page[models.Order], error) {
	return &pagination.Page[models.Order]{}, nil
}

func (stubOrdersService) ExpireStale(ctx context.Context, olderThan time.Duration, batch int) (int64, error) {
	return 0, nil
}

type stubPaymentsService struct{}

func (stubPaymentsService) CreateCheckout(ctx context.Context, input payments.CreateCheckoutInput) (*payments.CheckoutResult, error) {
	return &payments.CheckoutResult{}, nil
}

func (stubPaymentsService) HandleEvent(ctx context.Context, event *stripeapi.Event) (*payments.EventResult, error) {
	return &payments.EventResult{Outcome: payments.OutcomeIgnored}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) Notify(ctx context.Context, input notifications.NotifyInput) (*models.Notification, error) {
	return &models.Notification{}, nil
}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

type stubMessagesService struct{}

func (stubMessagesService) Send(ctx context.Context, input messages.SendInput) (*models.Message, error) {
	return &models.Message{}, nil
}

func (stubMessagesService) Conversation(ctx context.Context, input messages.ConversationInput) (*pagination.Page[models.Message], error) {
	return &pagination.Page[models.Message]{}, nil
}

func (stubMessagesService) MarkRead(ctx context.Context, recipientID, senderID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubMessagesService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return 0, nil
}

type stubSubscriber struct{}

func (stubSubscriber) Subscribe(ctx context.Context, userID uuid.UUID) (realtime.Stream, error) {
	return stubStream{events: make(chan string)}, nil
}

type stubStream struct {
	events chan string
}

func (s stubStream) Events() <-chan string {
	return s.events
}

func (s stubStream) Close() error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            stubPinger{},
		Redis:         nil,
		Stripe:        &stripe.Client{},
		Connections:   stubConnectionsService{},
		Proposals:     stubProposalsService{},
		Orders:        stubOrdersService{},
		Payments:      stubPaymentsService{},
		Notifications: stubNotificationsService{},
		Messages:      stubMessagesService{},
		Realtime:      stubSubscriber{},
	})
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleFreelancer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestOrdersListWithToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleClient))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for orders list got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestProposalRoutesEnforceRoles(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	asClient := httptest.NewRequest(http.MethodGet, "/api/v1/proposals/mine", nil)
	asClient.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleClient))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asClient)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for client on freelancer route got %d", resp.Code)
	}

	asFreelancer := httptest.NewRequest(http.MethodGet, "/api/v1/proposals/mine", nil)
	asFreelancer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleFreelancer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asFreelancer)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for freelancer on own proposals got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestWebhookRouteSkipsAuth(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	// No token required; the request fails signature verification instead.
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsigned webhook got %d", resp.Code)
	}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
