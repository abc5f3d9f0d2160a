package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type fakeBroker struct {
	published map[string][]string
	err       error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string][]string)}
}

func (f *fakeBroker) Publish(ctx context.Context, channel string, payload any) error {
	if f.err != nil {
		return f.err
	}
	raw, _ := payload.([]byte)
	f.published[channel] = append(f.published[channel], string(raw))
	return nil
}

func (f *fakeBroker) UserChannel(userID string) string {
	return "gf:rt:user:" + userID
}

func TestPushPublishesToUserChannel(t *testing.T) {
	broker := newFakeBroker()
	channel, err := NewChannel(broker, nil, nil)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}

	userID := uuid.New()
	channel.Push(context.Background(), userID, Event{
		Kind: KindNotification,
		Data: map[string]any{"title": "hello"},
	})

	payloads := broker.published["gf:rt:user:"+userID.String()]
	if len(payloads) != 1 {
		t.Fatalf("expected one publish, got %d", len(payloads))
	}

	var event struct {
		Kind       string         `json:"kind"`
		OccurredAt string         `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal([]byte(payloads[0]), &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.Kind != KindNotification {
		t.Fatalf("unexpected kind %q", event.Kind)
	}
	if event.OccurredAt == "" {
		t.Fatalf("occurred_at should be stamped")
	}
	if event.Data["title"] != "hello" {
		t.Fatalf("payload not preserved: %+v", event.Data)
	}
}

func TestPushSwallowsBrokerFailure(t *testing.T) {
	broker := newFakeBroker()
	broker.err = errors.New("redis down")
	channel, err := NewChannel(broker, nil, nil)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}

	// Must not panic or propagate the failure.
	channel.Push(context.Background(), uuid.New(), Event{Kind: KindMessage})
}

func TestPushIgnoresNilUser(t *testing.T) {
	broker := newFakeBroker()
	channel, err := NewChannel(broker, nil, nil)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	channel.Push(context.Background(), uuid.Nil, Event{Kind: KindNotification})
	if len(broker.published) != 0 {
		t.Fatalf("nil user should not publish")
	}
}

func TestNewChannelRequiresBroker(t *testing.T) {
	if _, err := NewChannel(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil broker")
	}
}
