package audio

import (
	"sync"

	"github.com/ssbullock/serene/internal/media"
)

// eventQueue доставляет события слушателю в отдельной горутине, сохраняя порядок.
// push никогда не блокируется, поэтому его можно вызывать под блокировкой динамиков.
type eventQueue struct {
	mu       sync.Mutex
	pending  []media.Event
	listener media.Listener
	closed   bool
	wake     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func newEventQueue(listener media.Listener) *eventQueue {
	return &eventQueue{
		listener: listener,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (q *eventQueue) push(ev media.Event) {
	q.mu.Lock()
	if q.closed || q.listener == nil {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, ev)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run() {
	for {
		select {
		case <-q.done:
			return
		case <-q.wake:
		}

		for {
			q.mu.Lock()
			if q.closed || len(q.pending) == 0 {
				q.mu.Unlock()
				break
			}
			ev := q.pending[0]
			q.pending = q.pending[1:]
			listener := q.listener
			q.mu.Unlock()

			listener(ev)
		}
	}
}

// close отключает слушателя и отбрасывает недоставленные события
func (q *eventQueue) close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.pending = nil
		q.listener = nil
		q.mu.Unlock()
		close(q.done)
	})
}
