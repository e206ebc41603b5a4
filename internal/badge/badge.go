package badge

import (
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// State is what the cart-count badge shows.
type State struct {
	Text    string
	Count   int // mirrored into the data-count attribute
	Visible bool
}

func StateFor(count int) State {
	return State{
		Text:    strconv.Itoa(count),
		Count:   count,
		Visible: count > 0,
	}
}

type Renderer interface {
	Render(State)
}

type RendererFunc func(State)

func (f RendererFunc) Render(s State) { f(s) }

// Badge is the single shared output sink for the cart count. Writes are
// serialized; with sequencing enabled a stale ticket cannot overwrite a newer one.
type Badge struct {
	mu       sync.Mutex
	renderer Renderer
	logger   *zap.Logger

	sequenced bool
	issued    uint64
	applied   uint64
	current   State
}

type Option func(*Badge)

func WithLogger(l *zap.Logger) Option {
	return func(b *Badge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithSequencing drops updates whose ticket is older than the last applied one.
func WithSequencing() Option {
	return func(b *Badge) { b.sequenced = true }
}

// New returns a badge that renders through r. A nil renderer is accepted and
// treated as a missing element.
func New(r Renderer, opts ...Option) *Badge {
	b := &Badge{
		renderer: r,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Update shows count unconditionally.
func (b *Badge) Update(count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.render(count)
}

// Ticket reserves a position in the update order. Take it before issuing the
// request whose response will be passed to Apply.
func (b *Badge) Ticket() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issued++
	return b.issued
}

// Apply renders count for the request holding ticket. It reports whether the
// update was rendered.
func (b *Badge) Apply(ticket uint64, count int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sequenced && ticket < b.applied {
		b.logger.Debug("dropping stale badge update",
			zap.Uint64("ticket", ticket),
			zap.Uint64("applied", b.applied),
			zap.Int("count", count),
		)
		return false
	}
	if ticket > b.applied {
		b.applied = ticket
	}
	b.render(count)
	return true
}

// Current returns the last rendered state.
func (b *Badge) Current() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Badge) render(count int) {
	s := StateFor(count)
	b.current = s
	if b.renderer == nil {
		b.logger.Debug("cart badge element not found", zap.Int("count", count))
		return
	}
	b.renderer.Render(s)
}
