package engine

import (
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/priorityqueue"

	"exchange/domain/orderbook"
)

// InboundEvent is one unit of work for an engine worker: an order or a state
// change, never both. Sequence is assigned at intake and breaks ties between
// events carrying the same timestamp.
type InboundEvent struct {
	Order       *orderbook.Order       `json:"order,omitempty"`
	StateChange *orderbook.StateChange `json:"stateChange,omitempty"`
	Sequence    uint64                 `json:"sequence"`
	ReceivedAt  time.Time              `json:"receivedAt"`
}

// OrderbookID returns the book the event addresses; empty for engine-wide
// state changes.
func (e InboundEvent) OrderbookID() string {
	switch {
	case e.Order != nil:
		return e.Order.OrderbookID
	case e.StateChange != nil:
		return e.StateChange.OrderbookID
	default:
		return ""
	}
}

// eventTime is the instant the event is ordered by: the order's submission
// time or the state change's effective time, falling back to arrival when the
// event carries no timestamp of its own.
func (e InboundEvent) eventTime() time.Time {
	switch {
	case e.Order != nil && !e.Order.SubmittedAt.IsZero():
		return e.Order.SubmittedAt
	case e.StateChange != nil && !e.StateChange.EffectiveAt.IsZero():
		return e.StateChange.EffectiveAt
	default:
		return e.ReceivedAt
	}
}

// Events drain in event-time order; intake sequence settles same-instant
// events.
func eventComparator(a, b interface{}) int {
	ea, eb := a.(InboundEvent), b.(InboundEvent)
	ta, tb := ea.eventTime(), eb.eventTime()
	if ta.Before(tb) {
		return -1
	}
	if ta.After(tb) {
		return 1
	}
	switch {
	case ea.Sequence < eb.Sequence:
		return -1
	case ea.Sequence > eb.Sequence:
		return 1
	default:
		return 0
	}
}

// eventQueue is a time-ordered queue with a blocking pop. The notify channel
// holds at most one wake-up; a popper drains the queue before sleeping again,
// so a lost signal cannot strand events.
type eventQueue struct {
	mu     sync.Mutex
	pq     *priorityqueue.Queue
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		pq:     priorityqueue.NewWith(eventComparator),
		notify: make(chan struct{}, 1),
	}
}

func (q *eventQueue) Push(e InboundEvent) {
	q.mu.Lock()
	q.pq.Enqueue(e)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop returns the oldest queued event, waiting up to timeout for one to
// arrive.
func (q *eventQueue) Pop(timeout time.Duration) (InboundEvent, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		q.mu.Lock()
		v, ok := q.pq.Dequeue()
		q.mu.Unlock()
		if ok {
			return v.(InboundEvent), true
		}
		select {
		case <-q.notify:
		case <-deadline.C:
			return InboundEvent{}, false
		}
	}
}

func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pq.Size()
}
