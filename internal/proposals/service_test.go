package proposals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gigflowhq/gigflow-backend/internal/notifications"
	"github.com/gigflowhq/gigflow-backend/internal/orders"
	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/pagination"
)

type fakeProposalRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Proposal
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{rows: make(map[uuid.UUID]*models.Proposal)}
}

func (f *fakeProposalRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeProposalRepo) Create(ctx context.Context, proposal *models.Proposal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.GigID == proposal.GigID && row.FreelancerID == proposal.FreelancerID {
			return gorm.ErrDuplicatedKey
		}
	}
	proposal.ID = uuid.New()
	proposal.CreatedAt = time.Now().UTC()
	f.rows[proposal.ID] = proposal
	return nil
}

func (f *fakeProposalRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[id]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeProposalRepo) FindByGigAndFreelancer(ctx context.Context, gigID, freelancerID uuid.UUID) (*models.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.GigID == gigID && row.FreelancerID == freelancerID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeProposalRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to enums.ProposalStatus, updates map[string]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status != from {
		return 0, nil
	}
	row.Status = to
	return 1, nil
}

func (f *fakeProposalRepo) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Proposal
	for _, row := range f.rows {
		if filters.FreelancerID != nil && row.FreelancerID != *filters.FreelancerID {
			continue
		}
		if filters.ClientID != nil && row.ClientID != *filters.ClientID {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

// fakeOrderStore implements just enough of orders.Repository for the
// same-transaction order creation path.
type fakeOrderStore struct {
	mu      sync.Mutex
	created []*models.Order
}

func (f *fakeOrderStore) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOrderStore) Create(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.created {
		if row.GigID == order.GigID && row.ClientID == order.ClientID && row.Status != enums.OrderStatusCancelled {
			return gorm.ErrDuplicatedKey
		}
	}
	order.ID = uuid.New()
	f.created = append(f.created, order)
	return nil
}

func (f *fakeOrderStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderStore) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderStore) FindActiveByGigAndClient(ctx context.Context, gigID, clientID uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.created {
		if row.GigID == gigID && row.ClientID == clientID && row.Status != enums.OrderStatusCancelled {
			copied := *row
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderStore) UpdateStatusIf(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (int64, error) {
	return 0, nil
}

func (f *fakeOrderStore) SetCheckout(ctx context.Context, id uuid.UUID, checkoutID string) error {
	return nil
}

func (f *fakeOrderStore) List(ctx context.Context, filters orders.ListFilters, params pagination.Params) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrderStore) FindStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	return nil, nil
}

type fakeGigRepo struct {
	gigs map[uuid.UUID]*models.Gig
}

func (f *fakeGigRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	if gig, ok := f.gigs[id]; ok {
		return gig, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeProfileRepo struct {
	profiles map[uuid.UUID]*models.FreelancerProfile
}

func (f *fakeProfileRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.FreelancerProfile, error) {
	if profile, ok := f.profiles[userID]; ok {
		return profile, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeProposalNotifier struct {
	mu   sync.Mutex
	sent []notifications.NotifyInput
}

func (f *fakeProposalNotifier) Notify(ctx context.Context, input notifications.NotifyInput) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, input)
	return &models.Notification{ID: uuid.New()}, nil
}

type proposalFixture struct {
	svc        Service
	repo       *fakeProposalRepo
	orderStore *fakeOrderStore
	notifier   *fakeProposalNotifier
	gigID      uuid.UUID
	client     uuid.UUID
	freelancer uuid.UUID
}

func newProposalFixture(t *testing.T) *proposalFixture {
	t.Helper()
	client, freelancer, gigID := uuid.New(), uuid.New(), uuid.New()

	repo := newFakeProposalRepo()
	orderStore := &fakeOrderStore{}
	notifier := &fakeProposalNotifier{}
	hourly := decimal.RequireFromString("45.00")

	svc, err := NewService(
		repo,
		orderStore,
		&fakeGigRepo{gigs: map[uuid.UUID]*models.Gig{
			gigID: {ID: gigID, OwnerID: client, Title: "API integration", Price: decimal.RequireFromString("900.00"), Active: true},
		}},
		&fakeUserRepo{users: map[uuid.UUID]*models.User{
			client:     {ID: client, DisplayName: "Acme Co", Role: enums.UserRoleClient},
			freelancer: {ID: freelancer, DisplayName: "Jordan Smith", Role: enums.UserRoleFreelancer},
		}},
		&fakeProfileRepo{profiles: map[uuid.UUID]*models.FreelancerProfile{
			freelancer: {UserID: freelancer, Headline: "Backend engineer", Skills: []string{"go", "postgres"}, HourlyRate: &hourly},
		}},
		fakeTxRunner{},
		notifier,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &proposalFixture{
		svc: svc, repo: repo, orderStore: orderStore, notifier: notifier,
		gigID: gigID, client: client, freelancer: freelancer,
	}
}

func (fx *proposalFixture) submit(t *testing.T) *models.Proposal {
	t.Helper()
	proposal, err := fx.svc.Submit(context.Background(), SubmitInput{
		FreelancerID:      fx.freelancer,
		GigID:             fx.gigID,
		ProposalText:      "I have shipped three integrations like this.",
		EstimatedDuration: "2 weeks",
		BidAmount:         decimal.RequireFromString("750.00"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return proposal
}

func TestSubmitSnapshotsProfile(t *testing.T) {
	fx := newProposalFixture(t)

	proposal := fx.submit(t)
	if proposal.Status != enums.ProposalStatusPending {
		t.Fatalf("expected pending, got %s", proposal.Status)
	}
	if proposal.ClientID != fx.client {
		t.Fatalf("client must come from the gig owner")
	}
	if proposal.ProfileSnapshot.Headline != "Backend engineer" || proposal.ProfileSnapshot.DisplayName != "Jordan Smith" {
		t.Fatalf("profile snapshot not captured: %+v", proposal.ProfileSnapshot)
	}
	if len(fx.notifier.sent) != 1 || fx.notifier.sent[0].UserID != fx.client {
		t.Fatalf("gig owner should be notified of the submission")
	}

	// Snapshot is frozen at submission time: later profile edits must
	// not leak into it.
	fx.svc.(*service).profiles.(*fakeProfileRepo).profiles[fx.freelancer].Skills[0] = "crochet"
	stored := fx.repo.rows[proposal.ID]
	if stored.ProfileSnapshot.Skills[0] != "go" {
		t.Fatalf("stored snapshot changed with the profile: %v", stored.ProfileSnapshot.Skills)
	}
}

func TestSubmitRequiresProfile(t *testing.T) {
	fx := newProposalFixture(t)
	other := uuid.New()
	fx.svc.(*service).users.(*fakeUserRepo).users[other] = &models.User{
		ID: other, DisplayName: "No Profile", Role: enums.UserRoleFreelancer,
	}

	_, err := fx.svc.Submit(context.Background(), SubmitInput{
		FreelancerID: other,
		GigID:        fx.gigID,
		ProposalText: "hire me",
		BidAmount:    decimal.RequireFromString("10.00"),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodePrecondition) {
		t.Fatalf("missing profile should fail precondition, got %v", err)
	}
}

func TestSubmitRejectsClientsAndOwners(t *testing.T) {
	fx := newProposalFixture(t)

	_, err := fx.svc.Submit(context.Background(), SubmitInput{
		FreelancerID: fx.client,
		GigID:        fx.gigID,
		ProposalText: "hire me",
		BidAmount:    decimal.RequireFromString("10.00"),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("clients cannot bid, got %v", err)
	}
}

func TestSubmitDuplicateConflicts(t *testing.T) {
	fx := newProposalFixture(t)
	fx.submit(t)

	_, err := fx.svc.Submit(context.Background(), SubmitInput{
		FreelancerID: fx.freelancer,
		GigID:        fx.gigID,
		ProposalText: "second try",
		BidAmount:    decimal.RequireFromString("700.00"),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Details() == nil {
		t.Fatalf("conflict should carry the existing record")
	}
	if carried, ok := appErr.Details().(*models.Proposal); !ok || carried.FreelancerID != fx.freelancer {
		t.Fatalf("details should be the existing proposal")
	}
	if len(fx.repo.rows) != 1 {
		t.Fatalf("conflict must not create a second proposal")
	}
}

func TestDecideOnlyGigOwner(t *testing.T) {
	fx := newProposalFixture(t)
	proposal := fx.submit(t)

	_, err := fx.svc.Decide(context.Background(), DecideInput{
		ProposalID: proposal.ID, ActorID: fx.freelancer, Accept: true,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("freelancer cannot decide, got %v", err)
	}

	decided, err := fx.svc.Decide(context.Background(), DecideInput{
		ProposalID: proposal.ID, ActorID: fx.client, Accept: true,
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != enums.ProposalStatusAccepted || decided.ReviewedAt == nil || decided.AcceptedAt == nil {
		t.Fatalf("accept should stamp reviewed_at and accepted_at: %+v", decided)
	}
	last := fx.notifier.sent[len(fx.notifier.sent)-1]
	if last.UserID != fx.freelancer || last.Type != enums.NotificationTypeProposalAccepted {
		t.Fatalf("freelancer should hear about the acceptance")
	}
}

func TestDecideRejectCarriesFeedback(t *testing.T) {
	fx := newProposalFixture(t)
	proposal := fx.submit(t)

	_, err := fx.svc.Decide(context.Background(), DecideInput{
		ProposalID: proposal.ID, ActorID: fx.client, Accept: false, Feedback: "budget too high",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	last := fx.notifier.sent[len(fx.notifier.sent)-1]
	if last.Type != enums.NotificationTypeProposalRejected {
		t.Fatalf("expected rejection notification")
	}
	if last.Data["feedback"] != "budget too high" {
		t.Fatalf("feedback should travel in the notification data")
	}
}

func TestDecideRepeatAndFlip(t *testing.T) {
	fx := newProposalFixture(t)
	proposal := fx.submit(t)

	if _, err := fx.svc.Decide(context.Background(), DecideInput{ProposalID: proposal.ID, ActorID: fx.client, Accept: true}); err != nil {
		t.Fatalf("decide: %v", err)
	}
	// Only the first decision wins; repeating it is a state conflict.
	_, repeatErr := fx.svc.Decide(context.Background(), DecideInput{ProposalID: proposal.ID, ActorID: fx.client, Accept: true})
	if !pkgerrors.IsCode(repeatErr, pkgerrors.CodeStateConflict) {
		t.Fatalf("repeat decision should be a state conflict, got %v", repeatErr)
	}
	// Flipping the decision too.
	_, err := fx.svc.Decide(context.Background(), DecideInput{ProposalID: proposal.ID, ActorID: fx.client, Accept: false})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("flip should be a state conflict, got %v", err)
	}
}

func TestCompleteCreatesOrderAtBidAmount(t *testing.T) {
	fx := newProposalFixture(t)
	proposal := fx.submit(t)
	if _, err := fx.svc.Decide(context.Background(), DecideInput{ProposalID: proposal.ID, ActorID: fx.client, Accept: true}); err != nil {
		t.Fatalf("decide: %v", err)
	}

	// Only the freelancer completes.
	_, err := fx.svc.Complete(context.Background(), proposal.ID, fx.client)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("client cannot complete, got %v", err)
	}

	result, err := fx.svc.Complete(context.Background(), proposal.ID, fx.freelancer)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Proposal.Status != enums.ProposalStatusCompleted || result.Proposal.CompletedAt == nil {
		t.Fatalf("proposal should be completed: %+v", result.Proposal)
	}
	order := result.Order
	if order.Status != enums.OrderStatusPendingPayment {
		t.Fatalf("derived order should await payment, got %s", order.Status)
	}
	if !order.Amount.Equal(decimal.RequireFromString("750.00")) {
		t.Fatalf("order amount must be the bid, got %s", order.Amount)
	}
	if order.ProposalID == nil || *order.ProposalID != proposal.ID {
		t.Fatalf("order should point back at the proposal")
	}
	if order.Title != "API integration" {
		t.Fatalf("order title should come from the gig, got %q", order.Title)
	}
	last := fx.notifier.sent[len(fx.notifier.sent)-1]
	if last.UserID != fx.client || last.Type != enums.NotificationTypeProposalCompleted {
		t.Fatalf("client should hear about the delivery")
	}
}

func TestCompleteRequiresAcceptance(t *testing.T) {
	fx := newProposalFixture(t)
	proposal := fx.submit(t)

	_, err := fx.svc.Complete(context.Background(), proposal.ID, fx.freelancer)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("pending proposal cannot be completed, got %v", err)
	}
	if len(fx.orderStore.created) != 0 {
		t.Fatalf("no order should be created")
	}
}

func TestConcurrentCompletesProduceOneOrder(t *testing.T) {
	fx := newProposalFixture(t)
	proposal := fx.submit(t)
	if _, err := fx.svc.Decide(context.Background(), DecideInput{ProposalID: proposal.ID, ActorID: fx.client, Accept: true}); err != nil {
		t.Fatalf("decide: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.Complete(context.Background(), proposal.ID, fx.freelancer)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			t.Fatalf("losers must see a state conflict, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one complete should win, got %d", wins)
	}
	if len(fx.orderStore.created) != 1 {
		t.Fatalf("exactly one order should exist, got %d", len(fx.orderStore.created))
	}
}

func TestSettlePaidIdempotent(t *testing.T) {
	fx := newProposalFixture(t)
	proposal := fx.submit(t)
	if _, err := fx.svc.Decide(context.Background(), DecideInput{ProposalID: proposal.ID, ActorID: fx.client, Accept: true}); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if _, err := fx.svc.Complete(context.Background(), proposal.ID, fx.freelancer); err != nil {
		t.Fatalf("complete: %v", err)
	}

	now := time.Now().UTC()
	if err := fx.svc.SettlePaid(context.Background(), nil, proposal.ID, now); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if fx.repo.rows[proposal.ID].Status != enums.ProposalStatusPaid {
		t.Fatalf("proposal should be paid")
	}
	// Replay is fine.
	if err := fx.svc.SettlePaid(context.Background(), nil, proposal.ID, now); err != nil {
		t.Fatalf("settle replay: %v", err)
	}
	// A pending proposal cannot settle.
	other := fx.submitAs(t, uuid.New())
	if err := fx.svc.SettlePaid(context.Background(), nil, other.ID, now); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func (fx *proposalFixture) submitAs(t *testing.T, freelancerID uuid.UUID) *models.Proposal {
	t.Helper()
	svc := fx.svc.(*service)
	svc.users.(*fakeUserRepo).users[freelancerID] = &models.User{
		ID: freelancerID, DisplayName: "Second Bidder", Role: enums.UserRoleFreelancer,
	}
	svc.profiles.(*fakeProfileRepo).profiles[freelancerID] = &models.FreelancerProfile{
		UserID: freelancerID, Headline: "Generalist",
	}
	proposal, err := fx.svc.Submit(context.Background(), SubmitInput{
		FreelancerID: freelancerID,
		GigID:        fx.gigID,
		ProposalText: "pick me",
		BidAmount:    decimal.RequireFromString("500.00"),
	})
	if err != nil {
		t.Fatalf("submit as %s: %v", freelancerID, err)
	}
	return proposal
}
