package proposals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gigflowhq/gigflow-backend/internal/notifications"
	"github.com/gigflowhq/gigflow-backend/internal/orders"
	"github.com/gigflowhq/gigflow-backend/internal/profiles"
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

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type profileFinder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.FreelancerProfile, error)
}

// Service exposes proposal lifecycle operations. SettlePaid satisfies
// the orders package's settler hook.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Proposal, error)
	Decide(ctx context.Context, input DecideInput) (*models.Proposal, error)
	Complete(ctx context.Context, proposalID, actorID uuid.UUID) (*CompleteResult, error)
	Get(ctx context.Context, actorID, proposalID uuid.UUID) (*models.Proposal, error)
	List(ctx context.Context, input ListInput) (*pagination.Page[models.Proposal], error)
	SettlePaid(ctx context.Context, tx *gorm.DB, proposalID uuid.UUID, now time.Time) error
}

type service struct {
	repo     Repository
	orders   orders.Repository
	gigs     gigFinder
	users    userFinder
	profiles profileFinder
	tx       txRunner
	notifier notifications.Notifier
}

// SubmitInput carries a freelancer's bid on a gig.
type SubmitInput struct {
	FreelancerID      uuid.UUID
	GigID             uuid.UUID
	ProposalText      string
	EstimatedDuration string
	BidAmount         decimal.Decimal
}

// DecideInput carries the client's accept or reject decision.
type DecideInput struct {
	ProposalID uuid.UUID
	ActorID    uuid.UUID
	Accept     bool
	Feedback   string
}

// CompleteResult pairs the completed proposal with the order it
// produced.
type CompleteResult struct {
	Proposal *models.Proposal
	Order    *models.Order
}

// ListInput scopes the proposal listing to the calling user.
type ListInput struct {
	UserID uuid.UUID
	Role   enums.UserRole
	GigID  *uuid.UUID
	Status string
	Params pagination.Params
}

// NewService builds the proposals service.
func NewService(repo Repository, orderRepo orders.Repository, gigRepo gigFinder, users userFinder, profileRepo profileFinder, tx txRunner, notifier notifications.Notifier) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "proposals repository required")
	}
	if orderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if gigRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gigs repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if profileRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "profiles repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		repo:     repo,
		orders:   orderRepo,
		gigs:     gigRepo,
		users:    users,
		profiles: profileRepo,
		tx:       tx,
		notifier: notifier,
	}, nil
}

// Submit records a freelancer's bid. The freelancer profile is
// snapshotted into the proposal so the client reviews what was pitched,
// not what the profile says later.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Proposal, error) {
	if input.FreelancerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.GigID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gig id required")
	}
	if input.ProposalText == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proposal text required")
	}
	if !input.BidAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive")
	}

	freelancer, err := s.users.FindByID(ctx, input.FreelancerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "freelancer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load freelancer")
	}
	if freelancer.Role != enums.UserRoleFreelancer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only freelancers submit proposals")
	}

	gig, err := s.gigs.FindByID(ctx, input.GigID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gig not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gig")
	}
	if !gig.Active {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "gig is no longer open for proposals")
	}
	if gig.OwnerID == input.FreelancerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot bid on your own gig")
	}

	profile, err := s.profiles.FindByUserID(ctx, input.FreelancerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodePrecondition, "complete your freelancer profile before bidding")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load freelancer profile")
	}

	proposal := &models.Proposal{
		GigID:             gig.ID,
		FreelancerID:      input.FreelancerID,
		ClientID:          gig.OwnerID,
		Status:            enums.ProposalStatusPending,
		ProposalText:      input.ProposalText,
		EstimatedDuration: input.EstimatedDuration,
		BidAmount:         input.BidAmount,
		ProfileSnapshot:   profiles.Snapshot(profile, freelancer.DisplayName, time.Now().UTC()),
	}
	if err := s.repo.Create(ctx, proposal); err != nil {
		if db.IsUniqueViolation(err, db.ConstraintProposalGigBidder) {
			conflict := pkgerrors.Wrap(pkgerrors.CodeConflict, err, "you already submitted a proposal for this gig")
			if existing, lookupErr := s.repo.FindByGigAndFreelancer(ctx, gig.ID, input.FreelancerID); lookupErr == nil {
				conflict = conflict.WithDetails(existing)
			}
			return nil, conflict
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create proposal")
	}

	s.notify(ctx, proposal.ClientID, enums.NotificationTypeProposalSubmitted, "New proposal", proposal, nil)
	return proposal, nil
}

// Decide applies the client's accept or reject. Only the first decision
// on a pending proposal wins; everything after that is a state
// conflict.
func (s *service) Decide(ctx context.Context, input DecideInput) (*models.Proposal, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	proposal, err := s.repo.FindByID(ctx, input.ProposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "proposal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load proposal")
	}
	if proposal.ClientID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the gig owner decides on proposals")
	}

	target := enums.ProposalStatusRejected
	if input.Accept {
		target = enums.ProposalStatusAccepted
	}
	if !proposal.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move proposal from %s to %s", proposal.Status, target))
	}

	now := time.Now().UTC()
	updates := map[string]any{"reviewed_at": now, "updated_at": now}
	if input.Accept {
		updates["accepted_at"] = now
	}
	rows, err := s.repo.UpdateStatusIf(ctx, proposal.ID, enums.ProposalStatusPending, target, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decide proposal")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "proposal already decided")
	}

	proposal.Status = target
	proposal.ReviewedAt = &now
	if input.Accept {
		proposal.AcceptedAt = &now
	}

	notifType := enums.NotificationTypeProposalRejected
	title := "Proposal declined"
	if input.Accept {
		notifType = enums.NotificationTypeProposalAccepted
		title = "Proposal accepted"
	}
	extra := map[string]any{}
	if input.Feedback != "" {
		extra["feedback"] = input.Feedback
	}
	s.notify(ctx, proposal.FreelancerID, notifType, title, proposal, extra)
	return proposal, nil
}

// Complete marks an accepted proposal as delivered and, in the same
// transaction, creates the order that will collect payment at the bid
// amount. This is the only way a proposal produces an order.
func (s *service) Complete(ctx context.Context, proposalID, actorID uuid.UUID) (*CompleteResult, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	proposal, err := s.repo.FindByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "proposal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load proposal")
	}
	if proposal.FreelancerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the proposal's freelancer can complete it")
	}
	if proposal.Status != enums.ProposalStatusAccepted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot complete a %s proposal", proposal.Status))
	}

	gig, err := s.gigs.FindByID(ctx, proposal.GigID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gig")
	}

	now := time.Now().UTC()
	order := &models.Order{
		GigID:        proposal.GigID,
		ClientID:     proposal.ClientID,
		FreelancerID: proposal.FreelancerID,
		ProposalID:   &proposal.ID,
		Title:        gig.Title,
		Status:       enums.OrderStatusPendingPayment,
		Amount:       proposal.BidAmount,
		Currency:     "usd",
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).UpdateStatusIf(ctx, proposal.ID,
			enums.ProposalStatusAccepted, enums.ProposalStatusCompleted,
			map[string]any{"completed_at": now, "updated_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete proposal")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "proposal already completed")
		}
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, db.ConstraintOrderActiveGigClient) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an active order already exists for this gig")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order from proposal")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	proposal.Status = enums.ProposalStatusCompleted
	proposal.CompletedAt = &now

	s.notify(ctx, proposal.ClientID, enums.NotificationTypeProposalCompleted, "Work delivered", proposal,
		map[string]any{"order_id": order.ID.String()})
	return &CompleteResult{Proposal: proposal, Order: order}, nil
}

// SettlePaid moves a completed proposal to paid once its derived order
// settles. Runs inside the order settlement transaction; replays are
// no-ops.
func (s *service) SettlePaid(ctx context.Context, tx *gorm.DB, proposalID uuid.UUID, now time.Time) error {
	repo := s.repo.WithTx(tx)
	rows, err := repo.UpdateStatusIf(ctx, proposalID,
		enums.ProposalStatusCompleted, enums.ProposalStatusPaid,
		map[string]any{"updated_at": now})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle proposal")
	}
	if rows > 0 {
		return nil
	}

	proposal, err := repo.FindByID(ctx, proposalID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load proposal for settlement")
	}
	if proposal.Status == enums.ProposalStatusPaid {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot settle a %s proposal", proposal.Status))
}

func (s *service) Get(ctx context.Context, actorID, proposalID uuid.UUID) (*models.Proposal, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	proposal, err := s.repo.FindByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "proposal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load proposal")
	}
	if proposal.FreelancerID != actorID && proposal.ClientID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "proposal does not involve user")
	}
	return proposal, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[models.Proposal], error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	filters := ListFilters{GigID: input.GigID}
	switch input.Role {
	case enums.UserRoleFreelancer:
		filters.FreelancerID = &input.UserID
	case enums.UserRoleClient:
		filters.ClientID = &input.UserID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown user role")
	}
	if input.Status != "" {
		parsed, err := enums.ParseProposalStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &parsed
	}

	rows, err := s.repo.List(ctx, filters, input.Params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list proposals")
	}

	page := pagination.BuildPage(rows, input.Params.Limit, func(p models.Proposal) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, title string, proposal *models.Proposal, extra map[string]any) {
	data := map[string]any{
		"proposal_id": proposal.ID.String(),
		"gig_id":      proposal.GigID.String(),
		"status":      string(proposal.Status),
		"bid_amount":  proposal.BidAmount.String(),
	}
	for key, value := range extra {
		data[key] = value
	}
	// Best effort: notification failures never unwind the mutation.
	_, _ = s.notifier.Notify(ctx, notifications.NotifyInput{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Data:   data,
	})
}
