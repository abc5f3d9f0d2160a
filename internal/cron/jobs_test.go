package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gigflowhq/gigflow-backend/pkg/logger"
)

type fakePruner struct {
	lastCutoff time.Time
	deleted    int64
	err        error
	called     int
}

func (f *fakePruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

type fakeExpirer struct {
	lastTTL   time.Duration
	lastBatch int
	cancelled int64
	err       error
}

func (f *fakeExpirer) ExpireStale(ctx context.Context, olderThan time.Duration, batch int) (int64, error) {
	f.lastTTL = olderThan
	f.lastBatch = batch
	if f.err != nil {
		return 0, f.err
	}
	return f.cancelled, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestNotificationCleanupJobUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	pruner := &fakePruner{deleted: 42}
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testLogger(),
		Repository: pruner,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job := jobIface.(*notificationCleanupJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.Add(-defaultRetentionDays * 24 * time.Hour)
	if !pruner.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, pruner.lastCutoff)
	}
	if pruner.called != 1 {
		t.Fatalf("expected one sweep, got %d", pruner.called)
	}
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testLogger(),
		Repository: &fakePruner{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestOrderExpiryJobPassesTTLAndBatch(t *testing.T) {
	expirer := &fakeExpirer{cancelled: 3}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:      testLogger(),
		Orders:      expirer,
		CheckoutTTL: 24 * time.Hour,
		Batch:       50,
	})
	if err != nil {
		t.Fatalf("NewOrderExpiryJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.lastTTL != 24*time.Hour || expirer.lastBatch != 50 {
		t.Fatalf("unexpected sweep args: %v %d", expirer.lastTTL, expirer.lastBatch)
	}
}

func TestOrderExpiryJobRequiresTTL(t *testing.T) {
	_, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: testLogger(),
		Orders: &fakeExpirer{},
	})
	if err == nil {
		t.Fatal("expected error for missing ttl")
	}
}
