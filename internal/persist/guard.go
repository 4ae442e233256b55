package persist

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// UploadGuard: at most one pending upload per block
// ─────────────────────────────────────────────────────────────

// UploadGuard tracks which blocks have an upload in flight.
// The zero value is ready to use.
type UploadGuard struct {
	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks blockID as uploading. It returns false if an upload is already pending.
func (g *UploadGuard) TryLock(blockID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		g.pending = make(map[string]struct{})
	}
	if _, ok := g.pending[blockID]; ok {
		return false
	}
	g.pending[blockID] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases blockID. Must follow a successful TryLock.
func (g *UploadGuard) Unlock(blockID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, blockID)
	g.wg.Done()
}

// Pending returns the ids of blocks with an upload in flight.
func (g *UploadGuard) Pending() map[string]bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]bool, len(g.pending))
	for id := range g.pending {
		out[id] = true
	}
	return out
}

// WaitAll blocks until every pending upload finishes or ctx is done.
func (g *UploadGuard) WaitAll(ctx context.Context) {
	waitGroup(ctx, &g.wg)
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
