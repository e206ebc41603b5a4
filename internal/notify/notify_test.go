package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scheduled struct {
	d time.Duration
	f func()
}

// fakeScheduler queues callbacks instead of running them on timers.
type fakeScheduler struct {
	m     sync.Mutex
	queue []scheduled
}

func (s *fakeScheduler) schedule(d time.Duration, f func()) {
	s.m.Lock()
	defer s.m.Unlock()
	s.queue = append(s.queue, scheduled{d, f})
}

// next pops and runs the oldest queued callback, returning its delay.
func (s *fakeScheduler) next(t *testing.T) time.Duration {
	s.m.Lock()
	require.NotEmpty(t, s.queue)
	job := s.queue[0]
	s.queue = s.queue[1:]
	s.m.Unlock()

	job.f()
	return job.d
}

func TestNotify_AppendsToast(t *testing.T) {
	c := NewMemoryContainer()
	sched := &fakeScheduler{}
	n := New(c, WithScheduler(sched.schedule))

	n.Notify("Vase added to cart", KindSuccess, time.Second)

	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Vase added to cart", entries[0].Message)
	assert.Equal(t, KindSuccess, entries[0].Kind)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Fading)
}

func TestNotify_Defaults(t *testing.T) {
	c := NewMemoryContainer()
	sched := &fakeScheduler{}
	n := New(c, WithScheduler(sched.schedule))

	n.Notify("hello", "", 0)

	assert.Equal(t, KindInfo, c.Entries()[0].Kind)
	assert.Equal(t, DefaultDuration, sched.next(t))
}

func TestNotify_DismissesAfterDurationThenExitTransition(t *testing.T) {
	c := NewMemoryContainer()
	sched := &fakeScheduler{}
	n := New(c, WithScheduler(sched.schedule))

	n.Notify("bye", KindError, 1500*time.Millisecond)

	assert.Equal(t, 1500*time.Millisecond, sched.next(t))
	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Fading)

	assert.Equal(t, ExitTransition, sched.next(t))
	assert.Empty(t, c.Entries())
}

func TestNotify_NilContainerIsNoop(t *testing.T) {
	sched := &fakeScheduler{}
	n := New(nil, WithScheduler(sched.schedule))

	assert.NotPanics(t, func() { n.Notify("lost", KindInfo, 0) })
	assert.Empty(t, sched.queue)
}

func TestNotify_RealTimers(t *testing.T) {
	c := NewMemoryContainer()
	n := New(c)

	n.Notify("quick", KindInfo, 10*time.Millisecond)
	require.Len(t, c.Entries(), 1)

	assert.Eventually(t, func() bool {
		return len(c.Entries()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryContainer_OnAppend(t *testing.T) {
	c := NewMemoryContainer()
	var got []string
	c.OnAppend(func(t Toast) { got = append(got, t.Message) })

	c.Append(Toast{ID: "a", Message: "one"})
	c.Append(Toast{ID: "b", Message: "two"})
	c.Remove("a")

	assert.Equal(t, []string{"one", "two"}, got)
	require.Len(t, c.Entries(), 1)
	assert.Equal(t, "b", c.Entries()[0].ID)
}
