package cartclient

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Initializer is run once when the host page starts.
type Initializer interface {
	OnInit(ctx context.Context)
}

// Host owns the page-load lifecycle: components register with it instead of
// hooking into a global document.
type Host struct {
	mu    sync.Mutex
	inits []Initializer
}

func NewHost(inits ...Initializer) *Host {
	return &Host{inits: inits}
}

func (h *Host) Register(i Initializer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inits = append(h.inits, i)
}

// Start runs every OnInit concurrently and waits for all of them. Initializers
// absorb their own failures, so Start only returns ctx errors.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	inits := make([]Initializer, len(h.inits))
	copy(inits, h.inits)
	h.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, i := range inits {
		i := i
		g.Go(func() error {
			i.OnInit(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
