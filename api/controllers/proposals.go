package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigflowhq/gigflow-backend/api/responses"
	"github.com/gigflowhq/gigflow-backend/api/validators"
	"github.com/gigflowhq/gigflow-backend/internal/proposals"
	"github.com/gigflowhq/gigflow-backend/pkg/enums"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
)

type submitProposalBody struct {
	GigID             uuid.UUID       `json:"gig_id" validate:"required"`
	ProposalText      string          `json:"proposal_text" validate:"required,max=5000"`
	EstimatedDuration string          `json:"estimated_duration" validate:"max=100"`
	BidAmount         decimal.Decimal `json:"bid_amount" validate:"required"`
}

type decideProposalBody struct {
	Status   string `json:"status" validate:"required,oneof=accepted rejected"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

// SubmitProposal records a freelancer's bid on a gig.
func SubmitProposal(svc proposals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body submitProposalBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposal, err := svc.Submit(r.Context(), proposals.SubmitInput{
			FreelancerID:      actorID,
			GigID:             body.GigID,
			ProposalText:      strings.TrimSpace(body.ProposalText),
			EstimatedDuration: strings.TrimSpace(body.EstimatedDuration),
			BidAmount:         body.BidAmount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, proposal)
	}
}

// ListGigProposals pages the proposals received on one of the caller's
// gigs.
func ListGigProposals(svc proposals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gigID, err := validators.PathUUID(r, "gigId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), proposals.ListInput{
			UserID: actorID,
			Role:   enums.UserRoleClient,
			GigID:  &gigID,
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
			Params: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ListMyProposals pages the proposals the calling freelancer submitted.
func ListMyProposals(svc proposals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), proposals.ListInput{
			UserID: actorID,
			Role:   enums.UserRoleFreelancer,
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
			Params: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// DecideProposal applies the client's accept or reject.
func DecideProposal(svc proposals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		proposalID, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body decideProposalBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposal, err := svc.Decide(r.Context(), proposals.DecideInput{
			ProposalID: proposalID,
			ActorID:    actorID,
			Accept:     body.Status == string(enums.ProposalStatusAccepted),
			Feedback:   strings.TrimSpace(body.Feedback),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, proposal)
	}
}

// CompleteProposal marks accepted work delivered and returns the order
// that will collect payment.
func CompleteProposal(svc proposals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		proposalID, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Complete(r.Context(), proposalID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
