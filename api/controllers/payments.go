package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gigflowhq/gigflow-backend/api/responses"
	"github.com/gigflowhq/gigflow-backend/api/validators"
	"github.com/gigflowhq/gigflow-backend/internal/orders"
	"github.com/gigflowhq/gigflow-backend/internal/payments"
	"github.com/gigflowhq/gigflow-backend/pkg/config"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
)

type checkoutSessionBody struct {
	OrderID uuid.UUID `json:"order_id"`
	GigID   uuid.UUID `json:"gig_id"`
}

type checkoutSessionResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	SessionID   string    `json:"session_id"`
	RedirectURL string    `json:"redirect_url"`
}

// CreateCheckoutSession opens the hosted payment page for an order. With
// gig_id it first creates the pending order at the gig's listed price;
// with order_id it pays an order that already exists, such as one
// derived from a completed proposal. The amount never comes from the
// request.
func CreateCheckoutSession(ordersSvc orders.Service, paymentsSvc payments.Service, cfg config.StripeConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutSessionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if (body.OrderID == uuid.Nil) == (body.GigID == uuid.Nil) {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "provide exactly one of order_id or gig_id"))
			return
		}

		orderID := body.OrderID
		if orderID == uuid.Nil {
			order, err := ordersSvc.CreateDirect(r.Context(), orders.CreateDirectInput{
				ClientID: actorID,
				GigID:    body.GigID,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			orderID = order.ID
		}

		checkout, err := paymentsSvc.CreateCheckout(r.Context(), payments.CreateCheckoutInput{
			OrderID:    orderID,
			ActorID:    actorID,
			SuccessURL: cfg.SuccessURL,
			CancelURL:  cfg.CancelURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutSessionResponse{
			OrderID:     orderID,
			SessionID:   checkout.SessionID,
			RedirectURL: checkout.CheckoutURL,
		})
	}
}
