package notify

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

const (
	DefaultDuration = 3 * time.Second
	// ExitTransition is the fade-out time between Fade and Remove.
	ExitTransition = 300 * time.Millisecond
)

type Toast struct {
	ID        string
	Message   string
	Kind      Kind
	CreatedAt time.Time
}

// Container is where toasts are shown.
type Container interface {
	Append(t Toast)
	Fade(id string)
	Remove(id string)
}

// Scheduler runs f once after d.
type Scheduler func(d time.Duration, f func())

func afterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

type Notifier struct {
	container Container
	logger    *zap.Logger
	schedule  Scheduler
	now       func() time.Time
}

type Option func(*Notifier)

func WithLogger(l *zap.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

func WithScheduler(s Scheduler) Option {
	return func(n *Notifier) {
		if s != nil {
			n.schedule = s
		}
	}
}

// New returns a notifier writing to c. c may be nil, in which case every
// Notify call is logged and dropped.
func New(c Container, opts ...Option) *Notifier {
	n := &Notifier{
		container: c,
		logger:    zap.NewNop(),
		schedule:  afterFunc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify shows message for duration and then dismisses it. An empty kind means
// KindInfo and a non-positive duration means DefaultDuration. It never blocks.
func (n *Notifier) Notify(message string, kind Kind, duration time.Duration) {
	if n.container == nil {
		n.logger.Warn("toast container not found", zap.String("message", message))
		return
	}
	if kind == "" {
		kind = KindInfo
	}
	if duration <= 0 {
		duration = DefaultDuration
	}

	toast := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		CreatedAt: n.now(),
	}
	n.container.Append(toast)

	n.schedule(duration, func() {
		n.container.Fade(toast.ID)
		n.schedule(ExitTransition, func() {
			n.container.Remove(toast.ID)
		})
	})
}
