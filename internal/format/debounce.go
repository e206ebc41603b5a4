package format

import (
	"sync"
	"time"
)

// Debounce delays fn until wait has passed without another call; only the
// last argument is delivered. cancel drops a pending call.
func Debounce[T any](fn func(T), wait time.Duration) (call func(T), cancel func()) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)

	call = func(arg T) {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(wait, func() { fn(arg) })
	}

	cancel = func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
			timer = nil
		}
	}

	return call, cancel
}
