package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePruner struct {
	mu        sync.Mutex
	calls     int
	retention time.Duration
	err       error
}

func (f *fakePruner) PruneCalls(_ context.Context, retention time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.retention = retention
	return 1, f.err
}

func (f *fakePruner) snapshot() (int, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.retention
}

func TestRetentionWorkerPrunesUntilCancelled(t *testing.T) {
	pruner := &fakePruner{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- RunRetentionWorker(ctx, pruner, 10*time.Millisecond, time.Hour)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if calls, _ := pruner.snapshot(); calls >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for prune calls")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	if _, retention := pruner.snapshot(); retention != time.Hour {
		t.Errorf("expected retention 1h, got %v", retention)
	}
}

func TestRetentionWorkerSurvivesErrors(t *testing.T) {
	pruner := &fakePruner{err: errors.New("database is locked")}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := RunRetentionWorker(ctx, pruner, 5*time.Millisecond, time.Hour); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls, _ := pruner.snapshot(); calls < 2 {
		t.Errorf("expected worker to keep pruning after errors, got %d calls", calls)
	}
}
