package notify

import "sync"

// Entry is a toast currently held by a MemoryContainer.
type Entry struct {
	Toast
	Fading bool
}

// MemoryContainer keeps toasts in memory. Safe for concurrent use.
type MemoryContainer struct {
	mu       sync.Mutex
	entries  []Entry
	onAppend func(Toast)
}

func NewMemoryContainer() *MemoryContainer {
	return &MemoryContainer{}
}

// OnAppend registers a callback invoked outside the lock for every new toast.
func (c *MemoryContainer) OnAppend(fn func(Toast)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAppend = fn
}

func (c *MemoryContainer) Append(t Toast) {
	c.mu.Lock()
	c.entries = append(c.entries, Entry{Toast: t})
	fn := c.onAppend
	c.mu.Unlock()

	if fn != nil {
		fn(t)
	}
}

func (c *MemoryContainer) Fade(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			c.entries[i].Fading = true
			return
		}
	}
}

func (c *MemoryContainer) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// Entries returns a copy of the toasts still shown, oldest first.
func (c *MemoryContainer) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
