package cron

import (
	"context"
	"errors"
	"testing"
)

type stubJob struct {
	name string
	runs int
	err  error
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

type stubLock struct {
	acquired bool
	releases int
}

func (l *stubLock) Acquire(ctx context.Context) (bool, error) { return l.acquired, nil }

func (l *stubLock) Release(ctx context.Context) error {
	l.releases++
	return nil
}

func TestRunCycleExecutesJobsInOrder(t *testing.T) {
	first := &stubJob{name: "first"}
	second := &stubJob{name: "second", err: errors.New("boom")}
	third := &stubJob{name: "third"}
	lock := &stubLock{acquired: true}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second, third),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	// A failing job must not stop the rest of the cycle.
	if first.runs != 1 || second.runs != 1 || third.runs != 1 {
		t.Fatalf("all jobs should run once: %d %d %d", first.runs, second.runs, third.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("lock should be released once, got %d", lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &stubJob{name: "only"}
	lock := &stubLock{acquired: false}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("held lock should skip the cycle")
	}
	if lock.releases != 0 {
		t.Fatalf("unacquired lock must not be released")
	}
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &stubJob{name: "real"})
	registry.Register(nil)
	if len(registry.Jobs()) != 1 {
		t.Fatalf("expected one job, got %d", len(registry.Jobs()))
	}
}
