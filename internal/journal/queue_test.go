package journal

import (
	"context"
	"testing"

	"github.com/fairyhunter13/vending-machine-simulator/internal/config"
	"github.com/fairyhunter13/vending-machine-simulator/internal/obs"
	"github.com/fairyhunter13/vending-machine-simulator/internal/sales"
)

func TestQueueNonBlockingEnqueue(t *testing.T) {
	obs.InitLogger()
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 0)
	for i := 0; i < 1000; i++ {
		ok := q.Enqueue(Entry{TransactionID: "t", Outcome: OutcomeCompleted})
		if !ok {
			t.Fatalf("enqueue failed at %d", i)
		}
	}
	if q.BacklogSize() == 0 {
		t.Fatalf("expected backlog > 0")
	}
}

func TestQueueShutdownIntake(t *testing.T) {
	q := New(1)
	q.CloseIntake()
	if !q.IsShuttingDown() {
		t.Fatalf("expected shutting down true")
	}
	if q.Enqueue(Entry{TransactionID: "t"}) {
		t.Fatalf("expected enqueue false when shutting down")
	}
}

func TestManagerDrain(t *testing.T) {
	cfg := config.Load()
	obs.InitLogger()
	st := sales.New()
	q := New(16)
	mgr := NewManager(cfg, q, st)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)
	for i := 0; i < 100; i++ {
		if !mgr.Record(Entry{TransactionID: "t", Outcome: OutcomeFailed}) {
			t.Fatalf("record failed at %d", i)
		}
	}
	ctxDrain, cancelDrain := context.WithCancel(context.Background())
	defer cancelDrain()
	if ok := mgr.DrainUntil(ctxDrain); !ok {
		t.Fatalf("expected drain true")
	}
	if st.Snapshot().Failed != 100 {
		t.Fatalf("expected 100 failed records, got %d", st.Snapshot().Failed)
	}
}

func TestRecordAssignsSequence(t *testing.T) {
	cfg := config.Load()
	obs.InitLogger()
	st := sales.New()
	q := New(16)
	mgr := NewManager(cfg, q, st)
	for i := 0; i < 3; i++ {
		mgr.Record(Entry{TransactionID: "t"})
	}
	if got := mgr.seq.Next(); got != 4 {
		t.Fatalf("expected next sequence 4, got %d", got)
	}
}
