package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/gigflowhq/gigflow-backend/pkg/logger"
)

const defaultExpiryBatch = 100

// OrderExpiryJobParams configure the stale order sweep.
type OrderExpiryJobParams struct {
	Logger      *logger.Logger
	Orders      staleOrderExpirer
	CheckoutTTL time.Duration
	Batch       int
}

// staleOrderExpirer cancels orders whose checkout window lapsed.
type staleOrderExpirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration, batch int) (int64, error)
}

// NewOrderExpiryJob builds the job that cancels unpaid orders older
// than the checkout TTL, freeing their gig/client slot.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.CheckoutTTL <= 0 {
		return nil, fmt.Errorf("checkout ttl must be positive")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    params.CheckoutTTL,
		batch:  batch,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders staleOrderExpirer
	ttl    time.Duration
	batch  int
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cancelled, err := j.orders.ExpireStale(ctx, j.ttl, j.batch)
	if err != nil {
		return fmt.Errorf("order expiry: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checkout_ttl":     j.ttl.String(),
		"orders_cancelled": cancelled,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return nil
}
