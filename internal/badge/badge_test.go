package badge

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	m      sync.Mutex
	states []State
}

func (r *recordingRenderer) Render(s State) {
	r.m.Lock()
	defer r.m.Unlock()
	r.states = append(r.states, s)
}

func (r *recordingRenderer) last() State {
	r.m.Lock()
	defer r.m.Unlock()
	return r.states[len(r.states)-1]
}

func TestUpdate_VisibleWhenPositive(t *testing.T) {
	r := &recordingRenderer{}
	b := New(r)

	b.Update(3)

	assert.Equal(t, State{Text: "3", Count: 3, Visible: true}, r.last())
}

func TestUpdate_HiddenAtZero(t *testing.T) {
	r := &recordingRenderer{}
	b := New(r)

	b.Update(0)

	assert.Equal(t, State{Text: "0", Count: 0, Visible: false}, r.last())
}

func TestUpdate_Idempotent(t *testing.T) {
	r := &recordingRenderer{}
	b := New(r)

	b.Update(2)
	first := r.last()
	b.Update(2)

	require.Len(t, r.states, 2)
	assert.Equal(t, first, r.last())
	assert.Equal(t, first, b.Current())
}

func TestUpdate_NilRendererIsNoop(t *testing.T) {
	b := New(nil)

	assert.NotPanics(t, func() { b.Update(4) })
	assert.Equal(t, 4, b.Current().Count)
}

func TestRendererFunc(t *testing.T) {
	var got State
	b := New(RendererFunc(func(s State) { got = s }))

	b.Update(1)

	assert.Equal(t, "1", got.Text)
}

func TestApply_UnsequencedLastWriterWins(t *testing.T) {
	r := &recordingRenderer{}
	b := New(r)

	older := b.Ticket()
	newer := b.Ticket()

	assert.True(t, b.Apply(newer, 5))
	assert.True(t, b.Apply(older, 1))
	assert.Equal(t, 1, r.last().Count)
}

func TestApply_SequencedDropsStaleResponse(t *testing.T) {
	r := &recordingRenderer{}
	b := New(r, WithSequencing())

	older := b.Ticket()
	newer := b.Ticket()

	assert.True(t, b.Apply(newer, 5))
	assert.False(t, b.Apply(older, 1))
	assert.Equal(t, 5, r.last().Count)
	assert.Len(t, r.states, 1)
}

func TestApply_SequencedInOrder(t *testing.T) {
	r := &recordingRenderer{}
	b := New(r, WithSequencing())

	first := b.Ticket()
	second := b.Ticket()

	assert.True(t, b.Apply(first, 1))
	assert.True(t, b.Apply(second, 2))
	assert.Equal(t, 2, b.Current().Count)
}
