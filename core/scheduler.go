package orchestration

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type stopFunc func() bool

type timerScheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) stopFunc
}

// clockScheduler fires timers onto the event loop rather than on the timer's
// own goroutine.
type clockScheduler struct {
	clock clockwork.Clock
	post  func(func())
}

func (s clockScheduler) Now() time.Time { return s.clock.Now() }

func (s clockScheduler) AfterFunc(d time.Duration, f func()) stopFunc {
	timer := s.clock.AfterFunc(d, func() { s.post(f) })
	return timer.Stop
}
