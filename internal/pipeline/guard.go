package pipeline

import (
	"context"
	"sync"
	"time"
)

// queryGuard provides two opt-in disciplines for persistence calls:
//
//   - RetryEmpty re-runs a query a bounded number of times with a short fixed
//     backoff when it legitimately succeeds but returns zero rows, covering
//     reads that race a just-committed write.
//   - Supersede cancels an in-flight query sharing the same logical key when
//     a newer call arrives, so an abandoned preview never ties up a pool
//     connection behind its replacement.
type queryGuard struct {
	attempts int
	backoff  time.Duration

	mu       sync.Mutex
	inflight map[string]*inflightQuery
}

type inflightQuery struct {
	cancel context.CancelFunc
}

func newQueryGuard(attempts int, backoff time.Duration) *queryGuard {
	if attempts < 1 {
		attempts = 1
	}
	return &queryGuard{
		attempts: attempts,
		backoff:  backoff,
		inflight: make(map[string]*inflightQuery),
	}
}

// RetryEmpty runs fn until it returns rows, errors, or the attempt ceiling
// is reached. fn reports how many rows it produced. An empty result after
// the final attempt is not an error; the retry only buys it extra chances.
func (g *queryGuard) RetryEmpty(ctx context.Context, fn func(ctx context.Context) (int, error)) error {
	for attempt := 1; attempt <= g.attempts; attempt++ {
		n, err := fn(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if attempt < g.attempts {
			select {
			case <-time.After(g.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// Supersede registers a logical key for an in-flight query, cancelling any
// previous holder of the same key. The returned context is cancelled if a
// newer call supersedes this one; release must be called when the query
// finishes.
func (g *queryGuard) Supersede(ctx context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	entry := &inflightQuery{cancel: cancel}

	g.mu.Lock()
	if prev, ok := g.inflight[key]; ok {
		prev.cancel()
	}
	g.inflight[key] = entry
	g.mu.Unlock()

	release := func() {
		g.mu.Lock()
		// Only clear the slot if it still belongs to this call.
		if g.inflight[key] == entry {
			delete(g.inflight, key)
		}
		g.mu.Unlock()
		cancel()
	}
	return ctx, release
}
