package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type signals struct {
	mu   sync.Mutex
	sent []bool
}

func (s *signals) send(typing bool) {
	s.mu.Lock()
	s.sent = append(s.sent, typing)
	s.mu.Unlock()
}

func (s *signals) get() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.sent...)
}

func TestTypingDebouncerSendsOneTruePerBurst(t *testing.T) {
	rec := &signals{}
	d := NewTypingDebouncer(40*time.Millisecond, rec.send)

	for i := 0; i < 5; i++ {
		d.Keystroke()
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, []bool{true}, rec.get())
	assert.True(t, d.Active())

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]bool{true, false}, rec.get())
	}, time.Second, 5*time.Millisecond)
	assert.False(t, d.Active())

	d.Keystroke()
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]bool{true, false, true, false}, rec.get())
	}, time.Second, 5*time.Millisecond)
}

func TestTypingDebouncerStopClearsImmediately(t *testing.T) {
	rec := &signals{}
	d := NewTypingDebouncer(time.Hour, rec.send)

	d.Stop()
	assert.Empty(t, rec.get())

	d.Keystroke()
	d.Stop()
	d.Stop()
	assert.Equal(t, []bool{true, false}, rec.get())
}

func TestTypingDebouncerStopCancelsPendingExpiry(t *testing.T) {
	rec := &signals{}
	d := NewTypingDebouncer(20*time.Millisecond, rec.send)

	d.Keystroke()
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []bool{true, false}, rec.get())
}
