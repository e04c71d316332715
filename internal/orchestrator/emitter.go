package orchestrator

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// emitTimeout bounds how long Emit waits for a slow consumer before dropping
// an event.
const emitTimeout = 100 * time.Millisecond

// EventEmitter is the single ordered channel of session events. Sequence ids
// are assigned under a lock so consumers observe a strictly increasing seq.
// After Close the emitter becomes a no-op sink: in-flight provider calls keep
// emitting without error, and their events are discarded.
type EventEmitter struct {
	mu           sync.Mutex
	events       chan StreamEvent
	seq          int64
	closed       bool
	quit         chan struct{}
	quitOnce     sync.Once
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		events: make(chan StreamEvent, bufferSize),
		quit:   make(chan struct{}),
	}
}

// terminal reports whether an event type settles a sub-task or the session.
// A consumer that saw task_start must eventually see the matching task_done
// or task_error, so these are exempt from the drop policy.
func terminal(t EventType) bool {
	switch t {
	case EventTaskDone, EventTaskError, EventSessionDone:
		return true
	}
	return false
}

// Emit assigns the next sequence id and timestamp to the event and sends it.
// If the channel stays full past a short timeout, non-terminal events are
// dropped rather than stalling the scheduler; terminal events block until
// the consumer drains the channel or the emitter is closed.
func (e *EventEmitter) Emit(event StreamEvent) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.seq++
	event.Seq = e.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Send while holding the lock so seq order and channel order agree.
	select {
	case e.events <- event:
		e.mu.Unlock()
		return
	default:
	}

	if terminal(event.Type) {
		select {
		case e.events <- event:
		case <-e.quit:
		}
		e.mu.Unlock()
		return
	}

	timer := time.NewTimer(emitTimeout)
	defer timer.Stop()
	select {
	case e.events <- event:
		e.mu.Unlock()
	case <-timer.C:
		e.mu.Unlock()
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // log every 10th drop to avoid spam
			log.Printf("[orchestrator] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read-only event channel consumed by the transport.
func (e *EventEmitter) Events() <-chan StreamEvent {
	return e.events
}

// Close turns the emitter into a no-op sink and closes the channel. Safe to
// call more than once; Emit calls after Close are discarded silently.
func (e *EventEmitter) Close() {
	// quit closes before the lock is taken so a terminal Emit blocked on a
	// full channel can release it.
	e.quitOnce.Do(func() { close(e.quit) })
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.events)
}
