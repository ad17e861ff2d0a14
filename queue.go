package tahti

// InEvents is the read side of an event sequence handed to a plugin.
// Events are sorted by Header.Time; the engine treats unsorted input as
// a protocol violation rather than sorting it itself. References
// returned by Get belong to the sequence: callers must not modify them
// and should treat them as valid only for the duration of the call.
type InEvents interface {
	Len() int
	Get(index int) *Event
}

// OutEvents is the write side of an event sequence. TryPush never
// blocks; it reports false when the event does not fit, in which case
// nothing was written and the producer decides what to drop.
type OutEvents interface {
	TryPush(e *Event) bool
}

// Queue is a fixed-capacity event sequence implementing both InEvents
// and OutEvents. All storage is allocated up front, so pushing and
// reading never allocate; hosts keep two of them per stream and Reset
// them between blocks.
type Queue struct {
	events []Event
	sysex  []byte // arena that queued sysex payloads point into
}

// NewQueue makes a queue holding at most capacity events and
// sysexCapacity bytes of sysex payload across all of them.
func NewQueue(capacity, sysexCapacity int) *Queue {
	return &Queue{
		events: make([]Event, 0, capacity),
		sysex:  make([]byte, 0, sysexCapacity),
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.events) }

// Cap returns the maximum number of events the queue can hold.
func (q *Queue) Cap() int { return cap(q.events) }

// Get returns the event at index, 0 <= index < Len(). The pointer stays
// valid until the next Reset but must be treated as read-only.
func (q *Queue) Get(index int) *Event { return &q.events[index] }

// Reset empties the queue, keeping its storage. Events previously
// reached through Get become invalid.
func (q *Queue) Reset() {
	q.events = q.events[:0]
	q.sysex = q.sysex[:0]
}

// TryPush appends a copy of the event and reports whether it fit. It
// fails when the queue is full, when the event would run backwards in
// time relative to the last queued event, or when a sysex payload
// exceeds the remaining arena space. A failed push leaves the queue
// exactly as it was, so the producer can drop the event or another one
// and carry on. Sysex bytes are copied into the queue's arena; the
// caller keeps ownership of the original slice.
func (q *Queue) TryPush(e *Event) bool {
	if len(q.events) == cap(q.events) {
		return false
	}
	if n := len(q.events); n > 0 && e.Header.Time < q.events[n-1].Header.Time {
		return false
	}
	if e.Header.Type == EventMIDISysex && len(e.MIDI.Sysex) > cap(q.sysex)-len(q.sysex) {
		return false
	}
	q.events = append(q.events, *e)
	if e.Header.Type == EventMIDISysex {
		start := len(q.sysex)
		q.sysex = append(q.sysex, e.MIDI.Sysex...)
		q.events[len(q.events)-1].MIDI.Sysex = q.sysex[start:len(q.sysex):len(q.sysex)]
	}
	return true
}

// Sorted reports whether the queued events are in non-decreasing time
// order. Queues filled only through TryPush always are; this is for
// checking sequences filled by other means.
func Sorted(events InEvents) bool {
	for i := 1; i < events.Len(); i++ {
		if events.Get(i).Header.Time < events.Get(i-1).Header.Time {
			return false
		}
	}
	return true
}
