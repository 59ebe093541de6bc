package sync

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/eventtrace/internal/model"
)

// mockDestination records calls to Write.
type mockDestination struct {
	name   string
	err    error
	writes atomic.Int64
	last   atomic.Value // []byte
}

func (d *mockDestination) Name() string { return d.name }

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return d.err
}

func TestSchedulerStartStop(t *testing.T) {
	ms := newMockStore()
	now := time.Now().UTC()
	ms.add(&model.Event{ID: "ev-1", Date: now, Name: "E1", Description: "d", CreatedAt: now})
	_ = ms.AddChange(context.Background(), model.NewSentinel("ev-1"))

	dest := &mockDestination{name: "mock"}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sched := NewScheduler(ms, []Destination{dest}, 50*time.Millisecond, logger)
	sched.Start()

	// Wait for at least the initial sync + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}

	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}

	lines := nonEmptyLines(string(data))
	// 1 header + 1 event
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	ms := newMockStore()
	sched := NewScheduler(ms, nil, time.Minute, nil)
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSchedulerMultipleDestinations(t *testing.T) {
	ms := newMockStore()
	dest1 := &mockDestination{name: "one"}
	dest2 := &mockDestination{name: "two"}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sched := NewScheduler(ms, []Destination{dest1, dest2}, time.Second, logger)
	sched.Start()

	// Wait for the initial sync.
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	if dest1.writes.Load() < 1 {
		t.Fatal("dest1 expected at least 1 write")
	}
	if dest2.writes.Load() < 1 {
		t.Fatal("dest2 expected at least 1 write")
	}
}

func TestSyncOnce_FailingDestination(t *testing.T) {
	ms := newMockStore()
	boom := errors.New("bucket gone")
	bad := &mockDestination{name: "bad", err: boom}
	good := &mockDestination{name: "good"}

	sched := NewScheduler(ms, []Destination{bad, good}, time.Minute, nil)
	err := sched.SyncOnce(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected destination error, got %v", err)
	}
	if good.writes.Load() != 1 {
		t.Fatal("expected the healthy destination to still be written")
	}
}

func TestSyncOnce_ExportError(t *testing.T) {
	ms := newMockStore()
	ms.listErr = errStore
	dest := &mockDestination{name: "mock"}

	sched := NewScheduler(ms, []Destination{dest}, time.Minute, nil)
	if err := sched.SyncOnce(context.Background()); !errors.Is(err, errStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if dest.writes.Load() != 0 {
		t.Fatal("expected no writes after export failure")
	}
}
