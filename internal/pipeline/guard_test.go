package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ============================================================================
// queryGuard Tests
// ============================================================================

func TestRetryEmpty_StopsOnRows(t *testing.T) {
	g := newQueryGuard(5, time.Millisecond)

	calls := 0
	err := g.RetryEmpty(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls == 2 {
			return 3, nil
		}
		return 0, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestRetryEmpty_AttemptCeiling(t *testing.T) {
	g := newQueryGuard(3, time.Millisecond)

	calls := 0
	err := g.RetryEmpty(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, nil
	})
	if err != nil {
		t.Fatalf("empty result after final attempt must not be an error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryEmpty_ErrorStopsImmediately(t *testing.T) {
	g := newQueryGuard(3, time.Millisecond)

	boom := errors.New("boom")
	calls := 0
	err := g.RetryEmpty(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Errorf("error must not be retried, got %d attempts", calls)
	}
}

func TestSupersede_CancelsPrevious(t *testing.T) {
	g := newQueryGuard(1, 0)

	ctx1, release1 := g.Supersede(context.Background(), "preview:t1")
	defer release1()

	ctx2, release2 := g.Supersede(context.Background(), "preview:t1")
	defer release2()

	select {
	case <-ctx1.Done():
	case <-time.After(time.Second):
		t.Fatal("first query was not cancelled by its successor")
	}
	if ctx2.Err() != nil {
		t.Fatal("second query must stay live")
	}
}

func TestSupersede_DifferentKeysIndependent(t *testing.T) {
	g := newQueryGuard(1, 0)

	ctx1, release1 := g.Supersede(context.Background(), "preview:t1")
	defer release1()
	_, release2 := g.Supersede(context.Background(), "preview:t2")
	defer release2()

	if ctx1.Err() != nil {
		t.Fatal("queries with different keys must not interfere")
	}
}

func TestSupersede_ReleaseClearsOwnSlotOnly(t *testing.T) {
	g := newQueryGuard(1, 0)

	_, release1 := g.Supersede(context.Background(), "k")
	ctx2, release2 := g.Supersede(context.Background(), "k")

	// Releasing the superseded call must not evict its replacement.
	release1()

	g.mu.Lock()
	_, still := g.inflight["k"]
	g.mu.Unlock()
	if !still {
		t.Fatal("stale release evicted the live query")
	}
	if ctx2.Err() != nil {
		t.Fatal("live query cancelled by stale release")
	}
	release2()
}
