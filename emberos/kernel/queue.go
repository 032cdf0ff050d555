package kernel

import "sync/atomic"

type queuedEvent struct {
	to PID
	ev Event
}

type slot struct {
	seq atomic.Uint64
	e   queuedEvent
}

// eventQueue is a bounded multi-producer, single-consumer FIFO.
//
// Producers (interrupt handlers and the main thread) claim a slot by CAS on
// tail, write it, then publish it by storing the slot sequence. The
// dispatcher is the only consumer and never blocks a producer: a claimed
// but unpublished slot simply reads as empty until it is published, which
// also keeps later slots from overtaking it.
//
// The sequence scheme needs at least two slots, so a queue of capacity one
// has a spare slot and push enforces the capacity on tail-head instead.
type eventQueue struct {
	slots []slot
	size  uint64 // len(slots)
	limit uint64

	tail atomic.Uint64
	head atomic.Uint64 // written by the dispatcher only
}

func newEventQueue(capacity int) *eventQueue {
	size := max(capacity, 2)
	q := &eventQueue{
		slots: make([]slot, size),
		size:  uint64(size),
		limit: uint64(capacity),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// push enqueues e, returning false if the queue is full.
func (q *eventQueue) push(e queuedEvent) bool {
	pos := q.tail.Load()
	for {
		s := &q.slots[pos%q.size]
		seq := s.seq.Load()
		switch d := int64(seq - pos); {
		case d == 0 && pos-q.head.Load() >= q.limit:
			return false
		case d == 0:
			if q.tail.CompareAndSwap(pos, pos+1) {
				s.e = e
				s.seq.Store(pos + 1)
				return true
			}
			pos = q.tail.Load()
		case d < 0:
			// The slot still holds an event from the previous lap.
			return false
		default:
			pos = q.tail.Load()
		}
	}
}

// pop dequeues the oldest published event. Dispatcher only.
func (q *eventQueue) pop() (queuedEvent, bool) {
	pos := q.head.Load()
	s := &q.slots[pos%q.size]
	if int64(s.seq.Load()-(pos+1)) < 0 {
		return queuedEvent{}, false
	}
	e := s.e
	s.e = queuedEvent{}
	s.seq.Store(pos + q.size)
	q.head.Store(pos + 1)
	return e, true
}

// len returns the number of claimed slots, published or not.
func (q *eventQueue) len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	n := int64(tail - head)
	if n < 0 {
		return 0
	}
	if n > int64(q.limit) {
		return int(q.limit)
	}
	return int(n)
}

func (q *eventQueue) capacity() int { return int(q.limit) }
