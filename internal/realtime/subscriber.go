package realtime

import (
	"context"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gigflowhq/gigflow-backend/pkg/errors"
)

// Subscriber opens a live stream of a user's realtime events.
type Subscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID) (Stream, error)
}

// Stream yields raw event payloads until closed.
type Stream interface {
	Events() <-chan string
	Close() error
}

// PubSubClient is the subscribe surface the redis client satisfies.
type PubSubClient interface {
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
	UserChannel(userID string) string
}

type redisSubscriber struct {
	client PubSubClient
}

// NewSubscriber builds the redis-backed event subscriber.
func NewSubscriber(client PubSubClient) (Subscriber, error) {
	if client == nil {
		return nil, errors.New(errors.CodeDependency, "pubsub client required")
	}
	return &redisSubscriber{client: client}, nil
}

func (s *redisSubscriber) Subscribe(ctx context.Context, userID uuid.UUID) (Stream, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id required")
	}
	pubsub, err := s.client.Subscribe(ctx, s.client.UserChannel(userID.String()))
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "subscribe user channel")
	}
	return newRedisStream(ctx, pubsub), nil
}

type redisStream struct {
	pubsub *goredis.PubSub
	events chan string
	cancel context.CancelFunc
}

func newRedisStream(ctx context.Context, pubsub *goredis.PubSub) *redisStream {
	ctx, cancel := context.WithCancel(ctx)
	stream := &redisStream{
		pubsub: pubsub,
		events: make(chan string, 16),
		cancel: cancel,
	}
	go stream.pump(ctx)
	return stream
}

func (s *redisStream) pump(ctx context.Context) {
	defer close(s.events)
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case s.events <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *redisStream) Events() <-chan string {
	return s.events
}

func (s *redisStream) Close() error {
	s.cancel()
	return s.pubsub.Close()
}
