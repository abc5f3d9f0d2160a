package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gigflowhq/gigflow-backend/internal/notifications"
	"github.com/gigflowhq/gigflow-backend/pkg/db"
	"github.com/gigflowhq/gigflow-backend/pkg/db/models"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gigFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Gig, error)
}

// ProposalSettler marks a proposal paid once its derived order settles.
// Implemented by the proposals package; optional for orders that do not
// derive from proposals.
type ProposalSettler interface {
	SettlePaid(ctx context.Context, tx *gorm.DB, proposalID uuid.UUID, now time.Time) error
}

// Service defines the order lifecycle operations.
type Service interface {
	CreateDirect(ctx context.Context, input CreateDirectInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	MarkPaid(ctx context.Context, input MarkPaidInput) (*MarkPaidResult, error)
	AttachCheckout(ctx context.Context, orderID uuid.UUID, checkoutID string) error
	Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, input ListInput) (*pagination.Page[models.Order], error)
	ExpireStale(ctx context.Context, olderThan time.Duration, batch int) (int64, error)
}

type service struct {
	repo      Repository
	gigs      gigFinder
	tx        txRunner
	notifier  notifications.Notifier
	proposals ProposalSettler
}

// CreateDirectInput is the immediate-purchase flow.
type CreateDirectInput struct {
	ClientID uuid.UUID
	GigID    uuid.UUID
}

// TransitionInput applies a caller-requested status change.
type TransitionInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Target  enums.OrderStatus
}

// MarkPaidInput is the payment reconciler's entry point, keyed by the
// gateway checkout session.
type MarkPaidInput struct {
	CheckoutID string
	PaymentRef string
}

// MarkPaidResult reports whether the payment was applied now or had
// already been applied by an earlier delivery.
type MarkPaidResult struct {
	Order   *models.Order
	Applied bool
}

// ListInput scopes the order listing to the calling user.
type ListInput struct {
	UserID uuid.UUID
	Role   enums.UserRole
	Status string
	Params pagination.Params
}

// NewService builds the orders service. The proposal settler may be nil
// when proposal-derived orders are not in play (tests).
func NewService(repo Repository, gigRepo gigFinder, tx txRunner, notifier notifications.Notifier, proposals ProposalSettler) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if gigRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gigs repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		repo:      repo,
		gigs:      gigRepo,
		tx:        tx,
		notifier:  notifier,
		proposals: proposals,
	}, nil
}

// CreateDirect records an immediate purchase of a gig. The order starts
// in pending and waits for the checkout session to settle it.
func (s *service) CreateDirect(ctx context.Context, input CreateDirectInput) (*models.Order, error) {
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.GigID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gig id required")
	}

	gig, err := s.gigs.FindByID(ctx, input.GigID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gig not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gig")
	}
	if !gig.Active {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "gig is no longer available")
	}
	if gig.OwnerID == input.ClientID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot purchase your own gig")
	}

	order := &models.Order{
		GigID:        gig.ID,
		ClientID:     input.ClientID,
		FreelancerID: gig.OwnerID,
		Title:        gig.Title,
		Status:       enums.OrderStatusPending,
		Amount:       gig.Price,
		Currency:     "usd",
	}
	if err := s.repo.Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, db.ConstraintOrderActiveGigClient) {
			conflict := pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an active order already exists for this gig")
			if existing, lookupErr := s.repo.FindActiveByGigAndClient(ctx, gig.ID, input.ClientID); lookupErr == nil {
				conflict = conflict.WithDetails(existing)
			}
			return nil, conflict
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	s.notify(ctx, order.FreelancerID, enums.NotificationTypeOrderCreated, "New order", order)
	return order, nil
}

// Transition applies a caller-requested edge. Payment settlement is not
// reachable from here; only the reconciler moves an order to paid.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if input.Target.GatewayOnly() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status is set by the payment gateway")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.ClientID != input.ActorID && order.FreelancerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not involve user")
	}
	if !order.Status.CanTransitionTo(input.Target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, input.Target))
	}
	if err := s.authorizeTransition(order, input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]any{}
	switch input.Target {
	case enums.OrderStatusCompleted:
		updates["completed_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
	}

	rows, err := s.repo.UpdateStatusIf(ctx, order.ID, []enums.OrderStatus{order.Status}, input.Target, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
	}

	order.Status = input.Target
	switch input.Target {
	case enums.OrderStatusCompleted:
		order.CompletedAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
	}

	s.notifyTransition(ctx, order, input.ActorID)
	return order, nil
}

// authorizeTransition encodes who may request which edge: freelancers
// start work, either side marks completion or cancels.
func (s *service) authorizeTransition(order *models.Order, input TransitionInput) error {
	switch input.Target {
	case enums.OrderStatusInProgress:
		if input.ActorID != order.FreelancerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the freelancer can start work")
		}
	case enums.OrderStatusCompleted, enums.OrderStatusCancelled:
		// either participant
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported transition target")
	}
	return nil
}

// MarkPaid settles an order from a confirmed gateway payment. Replays
// of an already-applied payment return the order with Applied=false.
func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) (*MarkPaidResult, error) {
	if input.CheckoutID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout id required")
	}

	order, err := s.repo.FindByCheckoutID(ctx, input.CheckoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order for checkout session")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by checkout")
	}

	if order.Status.PaidOrBeyond() {
		return &MarkPaidResult{Order: order, Applied: false}, nil
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment received for a cancelled order")
	}

	now := time.Now().UTC()
	applied := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.UpdateStatusIf(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPendingPayment},
			enums.OrderStatusPaid,
			map[string]any{"paid_at": now, "payment_ref": input.PaymentRef},
		)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
		}
		if rows == 0 {
			// A concurrent delivery won the conditional write.
			return nil
		}
		applied = true

		if order.FromProposal() && s.proposals != nil {
			if err := s.proposals.SettlePaid(ctx, tx, *order.ProposalID, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle proposal")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.PaymentRef = input.PaymentRef
	order.PaidAt = &now
	order.Status = enums.OrderStatusPaid

	if applied {
		s.notify(ctx, order.FreelancerID, enums.NotificationTypePaymentReceived, "Payment received", order)
		s.notify(ctx, order.ClientID, enums.NotificationTypePaymentReceived, "Payment confirmed", order)
	}
	return &MarkPaidResult{Order: order, Applied: applied}, nil
}

// AttachCheckout records the gateway session backing this order.
func (s *service) AttachCheckout(ctx context.Context, orderID uuid.UUID, checkoutID string) error {
	if orderID == uuid.Nil || checkoutID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and checkout id required")
	}
	if err := s.repo.SetCheckout(ctx, orderID, checkoutID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach checkout session")
	}
	return nil
}

func (s *service) Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.ClientID != actorID && order.FreelancerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not involve user")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[models.Order], error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	filters := ListFilters{}
	switch input.Role {
	case enums.UserRoleClient:
		filters.ClientID = &input.UserID
	case enums.UserRoleFreelancer:
		filters.FreelancerID = &input.UserID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown user role")
	}
	if input.Status != "" {
		parsed, err := enums.ParseOrderStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &parsed
	}

	rows, err := s.repo.List(ctx, filters, input.Params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page := pagination.BuildPage(rows, input.Params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

// ExpireStale cancels unpaid orders whose checkout window lapsed,
// freeing the (gig, client) slot for a fresh purchase.
func (s *service) ExpireStale(ctx context.Context, olderThan time.Duration, batch int) (int64, error) {
	if batch <= 0 {
		batch = 100
	}
	cutoff := time.Now().UTC().Add(-olderThan)

	stale, err := s.repo.FindStaleUnpaid(ctx, cutoff, batch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale orders")
	}

	now := time.Now().UTC()
	var cancelled int64
	for _, order := range stale {
		rows, err := s.repo.UpdateStatusIf(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPendingPayment},
			enums.OrderStatusCancelled,
			map[string]any{"cancelled_at": now},
		)
		if err != nil {
			return cancelled, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel stale order")
		}
		if rows == 0 {
			continue
		}
		cancelled++
		order.Status = enums.OrderStatusCancelled
		s.notify(ctx, order.ClientID, enums.NotificationTypeOrderCancelled, "Order expired", &order)
	}
	return cancelled, nil
}

func (s *service) notifyTransition(ctx context.Context, order *models.Order, actorID uuid.UUID) {
	switch order.Status {
	case enums.OrderStatusInProgress:
		s.notify(ctx, order.ClientID, enums.NotificationTypeOrderInProgress, "Work started", order)
	case enums.OrderStatusCompleted:
		s.notify(ctx, counterpartOf(order, actorID), enums.NotificationTypeOrderCompleted, "Order completed", order)
	case enums.OrderStatusCancelled:
		s.notify(ctx, counterpartOf(order, actorID), enums.NotificationTypeOrderCancelled, "Order cancelled", order)
	}
}

func counterpartOf(order *models.Order, actorID uuid.UUID) uuid.UUID {
	if actorID == order.ClientID {
		return order.FreelancerID
	}
	return order.ClientID
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, title string, order *models.Order) {
	// Best effort: notification failures never unwind the mutation.
	_, _ = s.notifier.Notify(ctx, notifications.NotifyInput{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Data: map[string]any{
			"order_id": order.ID.String(),
			"gig_id":   order.GigID.String(),
			"status":   string(order.Status),
			"amount":   order.Amount.String(),
		},
	})
}
