package detention

import (
	"sync"
	"time"
)

// Clock supplies the current time. Tests substitute a fixed clock to
// exercise timestamp ties.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// sequencer hands out strictly increasing entry sequence numbers. Values
// track the wall clock in nanoseconds so they stay increasing across
// process restarts unless the clock steps backwards.
type sequencer struct {
	mu   sync.Mutex
	last int64
}

func (s *sequencer) next(t time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := t.UnixNano()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return n
}
