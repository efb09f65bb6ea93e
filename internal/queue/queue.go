// Package queue hands inbound events from the HTTP receivers to the single
// update processor.
package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"purchasebot/internal/model"
)

// Queue errors. Both mean the process can no longer accept work.
var (
	ErrQueueClosed    = errors.New("ingestion queue closed")
	ErrQueueExhausted = errors.New("ingestion queue exhausted")
)

// Queue is a multi-producer, single-consumer FIFO of events. Enqueue never
// blocks. The queue is unbounded unless a limit is set.
type Queue struct {
	mu     sync.Mutex
	items  []model.Event
	limit  int
	closed bool

	signal chan struct{} // buffered(1): at least one item may be waiting
	done   chan struct{}
	once   sync.Once

	enqueued atomic.Uint64
	dequeued atomic.Uint64
}

// New creates a queue. A limit <= 0 means unbounded.
func New(limit int) *Queue {
	return &Queue{
		limit:  limit,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Enqueue appends ev. Events are dequeued in the order their Enqueue calls completed.
func (q *Queue) Enqueue(ev model.Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.limit > 0 && len(q.items) >= q.limit {
		q.mu.Unlock()
		return ErrQueueExhausted
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	q.enqueued.Add(1)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue removes the oldest event, waiting up to timeout for one to arrive.
// It returns false on timeout. A closed, drained queue still waits out the
// timeout so a polling consumer does not spin.
func (q *Queue) Dequeue(timeout time.Duration) (model.Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := q.done
	for {
		if ev, ok := q.pop(); ok {
			return ev, true
		}

		select {
		case <-q.signal:
		case <-done:
			// closed: nothing new can arrive, only the timer is left
			done = nil
		case <-timer.C:
			return model.Event{}, false
		}
	}
}

func (q *Queue) pop() (model.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return model.Event{}, false
	}
	ev := q.items[0]
	q.items[0] = model.Event{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	} else {
		// more waiting; keep the consumer awake
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	q.dequeued.Add(1)
	return ev, true
}

// Depth returns the number of events waiting.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the configured limit, 0 when unbounded.
func (q *Queue) Capacity() int {
	return q.limit
}

// Enqueued returns the number of events accepted since creation.
func (q *Queue) Enqueued() uint64 {
	return q.enqueued.Load()
}

// Dequeued returns the number of events handed to the consumer.
func (q *Queue) Dequeued() uint64 {
	return q.dequeued.Load()
}

// Close rejects further Enqueue calls. Events already queued can still be dequeued.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
}
