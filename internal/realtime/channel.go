package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
	"github.com/gigflowhq/gigflow-backend/pkg/metrics"
)

// Event kinds pushed over user channels.
const (
	KindNotification = "notification"
	KindMessage      = "message"
)

// Event is the payload fanned out to a single user's channel.
type Event struct {
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Channel pushes events at a single recipient. Delivery is best effort:
// a failed push never fails the calling operation and the persisted
// record remains the source of truth.
type Channel interface {
	Push(ctx context.Context, userID uuid.UUID, event Event)
}

// Broker is the pub/sub surface the redis client satisfies.
type Broker interface {
	Publish(ctx context.Context, channel string, payload any) error
	UserChannel(userID string) string
}

type redisChannel struct {
	broker  Broker
	logg    *logger.Logger
	metrics *metrics.EventMetrics
}

// NewChannel builds the redis-backed realtime channel.
func NewChannel(broker Broker, logg *logger.Logger, m *metrics.EventMetrics) (Channel, error) {
	if broker == nil {
		return nil, errors.New(errors.CodeDependency, "realtime broker required")
	}
	return &redisChannel{broker: broker, logg: logg, metrics: m}, nil
}

// Push serializes the event and publishes it to the user's channel.
// Errors are logged and counted, never returned.
func (c *redisChannel) Push(ctx context.Context, userID uuid.UUID, event Event) {
	if userID == uuid.Nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		c.metrics.IncRealtimeDropped(event.Kind)
		if c.logg != nil {
			c.logg.Error(ctx, "marshal realtime event", err)
		}
		return
	}

	if err := c.broker.Publish(ctx, c.broker.UserChannel(userID.String()), payload); err != nil {
		c.metrics.IncRealtimeDropped(event.Kind)
		if c.logg != nil {
			c.logg.Error(ctx, "publish realtime event", err)
		}
		return
	}
	c.metrics.IncRealtimePublished(event.Kind)
}
