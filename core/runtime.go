package orchestration

import (
	"sync"
	"sync/atomic"
)

const eventLoopQueueCapacity = 64

// eventLoop runs every state change on a single goroutine. Work posted
// before start is kept and processed once the loop runs.
type eventLoop struct {
	queue   chan func()
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		queue:   make(chan func(), eventLoopQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (l *eventLoop) start() (started bool) {
	if l.isClosed() {
		return false
	}

	l.startOnce.Do(func() {
		if l.isClosed() {
			return
		}

		started = true
		l.started.Store(true)
		go func() {
			defer close(l.done)

			for {
				select {
				case <-l.closeCh:
					return
				case work := <-l.queue:
					if l.isClosed() {
						return
					}
					work()
				}
			}
		}()
	})

	return started
}

func (l *eventLoop) post(work func()) bool {
	if l.isClosed() {
		return false
	}

	select {
	case <-l.closeCh:
		return false
	case l.queue <- work:
		return true
	}
}

// end stops the loop after the currently running work, if any.
func (l *eventLoop) end() {
	l.endOnce.Do(func() {
		close(l.closeCh)
	})
}

func (l *eventLoop) waitUntilEnded() {
	if l.started.Load() {
		<-l.done
	}
}

func (l *eventLoop) isClosed() bool {
	select {
	case <-l.closeCh:
		return true
	default:
		return false
	}
}
