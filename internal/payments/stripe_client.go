package payments

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	pkgstripe "github.com/gigflowhq/gigflow-backend/pkg/stripe"
)

// CheckoutClient exposes the subset of Stripe operations the payment
// service needs, so it can be faked in tests.
type CheckoutClient interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type checkoutClientWrapper struct{}

// NewCheckoutClient wraps the initialized Stripe client.
func NewCheckoutClient(api *pkgstripe.Client) CheckoutClient {
	if api == nil {
		return nil
	}
	return &checkoutClientWrapper{}
}

func (w *checkoutClientWrapper) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return session.New(params)
}
