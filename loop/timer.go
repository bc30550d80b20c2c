package loop

import (
	"sync"
	"time"
)

// Timer is a one-shot timer whose callback runs on the loop. An armed timer
// retains the loop.
type Timer struct {
	loop  *Loop
	fn    func()
	mu    sync.Mutex
	timer *time.Timer
	armed bool
	gen   uint64
}

// SetTimeout runs fn on the loop after d.
func (l *Loop) SetTimeout(d time.Duration, fn func()) *Timer {
	t := &Timer{loop: l, fn: fn}
	t.Reset(d)
	return t
}

// Reset re-arms the timer to fire after d, replacing any pending expiry.
func (t *Timer) Reset(d time.Duration) {
	t.mu.Lock()
	wasArmed := t.armed
	if t.timer != nil {
		t.timer.Stop()
	}
	t.armed = true
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.loop.Enqueue(func() { t.fire(gen) })
	})
	t.mu.Unlock()

	if !wasArmed {
		t.loop.Retain()
	}
}

// Stop disarms the timer. It reports whether the timer was armed.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	if !t.armed {
		t.mu.Unlock()
		return false
	}
	t.armed = false
	t.timer.Stop()
	t.mu.Unlock()

	t.loop.Release()
	return true
}

// Active reports whether the timer is armed.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if !t.armed || t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.mu.Unlock()

	defer t.loop.Release()
	t.loop.fired.Add(1)
	t.loop.metrics.RecordTimerFired()
	if t.fn != nil {
		t.fn()
	}
}
