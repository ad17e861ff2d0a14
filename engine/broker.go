package engine

import (
	"sync"
	"time"

	"github.com/vsariola/tahti"
)

type (
	// Broker carries messages between the audio context and everything
	// else. The audio context must never block, so everything it sends
	// goes through TrySend, and everything sent to it is drained with a
	// non-blocking select at the start of a block. All channels are
	// bounded and allocated up front. Additionally, the broker has a
	// sync.Pool of audio buffers, so the driver can pass copies of
	// rendered audio to observers without allocating fresh memory for
	// every block.
	//
	// For closing observer goroutines there are two channels: Close has
	// a capacity of 1, so requesting a close never blocks; if it is
	// already full, someone else already asked and the goroutine is
	// going down anyway. Finished is never sent to, only closed, so
	// waiting for it can be combined with a timeout via TimeoutReceive.
	Broker struct {
		ToDriver   chan any // tahti.Event, PanicMsg
		ToObserver chan MsgToObserver

		CloseObserver    chan struct{}
		FinishedObserver chan struct{}

		bufferPool sync.Pool
	}

	// MsgToObserver is the per-block report the driver sends to whatever
	// is watching the stream. The frequently used fields are not boxed,
	// to avoid allocations on the audio context; infrequent data (an
	// Alert, a *tahti.AudioBuffer with a copy of the rendered audio)
	// rides in Data, since boxing a pointer does not allocate.
	MsgToObserver struct {
		Status       tahti.Status
		SteadyTime   int64
		Frames       int
		Peak         float32
		VoicesActive int
		EventsIn     int

		// DroppedEnds and SkippedEvents are cumulative counters: output
		// note ends dropped because the host queue stayed full, and
		// input events skipped because their type or space was unknown
		// or their parameter unregistered.
		DroppedEnds   uint64
		SkippedEvents uint64

		Data any
	}

	// PanicMsg asks the driver to choke every voice and forget staged
	// state at the next block boundary.
	PanicMsg struct{}

	// Alert is a diagnostic for the non-realtime side. The driver only
	// emits one when a block fails, so formatting on the audio context
	// stays confined to paths where the stream is already broken.
	Alert struct {
		Name     string
		Message  string
		Priority AlertPriority
	}

	AlertPriority int
)

const (
	AlertInfo AlertPriority = iota
	AlertWarning
	AlertError
)

func NewBroker() *Broker {
	return &Broker{
		ToDriver:         make(chan any, 1024),
		ToObserver:       make(chan MsgToObserver, 1024),
		CloseObserver:    make(chan struct{}, 1),
		FinishedObserver: make(chan struct{}),
		bufferPool:       sync.Pool{New: func() any { return &tahti.AudioBuffer{} }},
	}
}

// GetAudioBuffer returns an empty audio buffer from the buffer pool.
// After use it should be handed back with PutAudioBuffer.
func (b *Broker) GetAudioBuffer() *tahti.AudioBuffer {
	return b.bufferPool.Get().(*tahti.AudioBuffer)
}

// PutAudioBuffer returns an audio buffer to the buffer pool, resetting
// its length but keeping its capacity.
func (b *Broker) PutAudioBuffer(buf *tahti.AudioBuffer) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// StageEvent queues an event to be applied at the start of the next
// block, reporting whether it fit. Stagers run outside the audio
// context; the event's time is ignored and treated as 0.
func (b *Broker) StageEvent(e tahti.Event) bool {
	return TrySend(b.ToDriver, any(e))
}

// TrySend sends a value to a channel if it is not full. It is
// guaranteed to be non-blocking. Returns true if the value was sent,
// false otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value is received from the channel or
// the timeout passes. ok is false on timeout or when the channel is
// closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
