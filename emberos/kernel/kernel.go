// Package kernel is the cooperative process scheduler.
//
// Every process runs on the caller's stack, one at a time, between two
// suspension points of its protothread. The only concurrency is between
// interrupt context (tick, real-time timer, drivers) and the main
// dispatch loop, and interrupt context may only use the operations marked
// interrupt-safe: Post, Poll, Pending and Stats.
package kernel

import (
	"context"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

const (
	DefaultMaxProcesses = 32
	DefaultQueueSize    = 32

	// MaxProcesses is the hard limit on Config.MaxProcesses; the top PID
	// values are reserved.
	MaxProcesses = 254
)

// PID is a stable handle to a slot of the process table.
type PID uint8

const (
	// Broadcast targets every live process.
	Broadcast PID = 0xFF
	// NoPID marks events posted from outside any process.
	NoPID PID = 0xFE
)

// Config sizes the kernel. The tables are allocated once in New and never
// grow.
type Config struct {
	MaxProcesses int
	QueueSize    int
	Logger       *logiface.Logger[logiface.Event]
}

// Stats are dispatcher counters. Safe to read from any context.
type Stats struct {
	Posted    uint64
	Delivered uint64
	Dropped   uint64
	Polls     uint64
	Passes    uint64
}

// Kernel is the process table, event queue and dispatcher.
type Kernel struct {
	log *logiface.Logger[logiface.Event]

	procs []process
	count atomic.Int32

	queue         *eventQueue
	pollRequested atomic.Bool
	wake          chan struct{}

	current     PID
	dispatching bool
	nextEvent   EventKind

	posted    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	polls     atomic.Uint64
	passes    atomic.Uint64

	reportedDrops uint64
}

// New creates a kernel with an empty process table.
func New(cfg Config) *Kernel {
	if cfg.MaxProcesses <= 0 {
		cfg.MaxProcesses = DefaultMaxProcesses
	}
	if cfg.MaxProcesses > MaxProcesses {
		cfg.MaxProcesses = MaxProcesses
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Kernel{
		log:       cfg.Logger,
		procs:     make([]process, cfg.MaxProcesses),
		queue:     newEventQueue(cfg.QueueSize),
		wake:      make(chan struct{}, 1),
		current:   NoPID,
		nextEvent: EventMax + 1,
	}
}

// Logger returns the kernel logger, possibly nil.
func (k *Kernel) Logger() *logiface.Logger[logiface.Event] { return k.log }

// Len returns the number of registered processes.
func (k *Kernel) Len() int { return int(k.count.Load()) }

// Capacity returns the size of the process table.
func (k *Kernel) Capacity() int { return len(k.procs) }

// QueueCapacity returns the size of the event queue.
func (k *Kernel) QueueCapacity() int { return k.queue.capacity() }

// Current returns the process whose code is executing, or NoPID.
// Main-thread only.
func (k *Kernel) Current() PID { return k.current }

// Pending returns the number of queued events, plus one if any poll is
// outstanding. Interrupt-safe.
func (k *Kernel) Pending() int {
	n := k.queue.len()
	if k.pollRequested.Load() {
		n++
	}
	return n
}

// Stats returns a snapshot of the dispatcher counters. Interrupt-safe.
func (k *Kernel) Stats() Stats {
	return Stats{
		Posted:    k.posted.Load(),
		Delivered: k.delivered.Load(),
		Dropped:   k.dropped.Load(),
		Polls:     k.polls.Load(),
		Passes:    k.passes.Load(),
	}
}

// Run dispatches until ctx is done, sleeping while there is no work.
//
// Post and Poll wake it; a wakeup that arrives between the last pass and
// the sleep is kept in the one-slot wake channel, so none is lost.
func (k *Kernel) Run(ctx context.Context) error {
	for {
		for k.RunOnce() > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-k.wake:
		}
	}
}

// RunUntilIdle runs dispatch passes until no work is left and returns the
// number of passes.
func (k *Kernel) RunUntilIdle() int {
	for n := 1; ; n++ {
		if k.RunOnce() == 0 {
			return n
		}
	}
}

// Wake returns the channel signalled whenever work is posted. Platform
// loops that cannot use Run may sleep on it.
func (k *Kernel) Wake() <-chan struct{} { return k.wake }

func (k *Kernel) signal() {
	select {
	case k.wake <- struct{}{}:
	default:
	}
}
