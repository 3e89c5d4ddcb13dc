package usecase

import (
	"sync"
	"time"
)

// TypingDebouncer turns a stream of keystrokes into typing on/off signals.
// The first keystroke after an idle period sends true; false follows once no
// keystroke arrived for the idle duration. Signals are sent in order.
type TypingDebouncer struct {
	idle time.Duration
	send func(typing bool)

	mu     sync.Mutex
	active bool
	timer  *time.Timer
	gen    int
}

func NewTypingDebouncer(idle time.Duration, send func(typing bool)) *TypingDebouncer {
	return &TypingDebouncer{idle: idle, send: send}
}

func (d *TypingDebouncer) Keystroke() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		d.active = true
		d.send(true)
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.idle, func() { d.expire(gen) })
}

func (d *TypingDebouncer) expire(gen int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// a keystroke after this timer was armed owns the next expiry
	if gen != d.gen || !d.active {
		return
	}
	d.active = false
	d.timer = nil
	d.send(false)
}

// Stop sends false right away if a typing signal is outstanding.
func (d *TypingDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.active {
		d.active = false
		d.send(false)
	}
}

func (d *TypingDebouncer) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}
