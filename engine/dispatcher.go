package engine

import (
	"errors"
	"fmt"

	"github.com/vsariola/tahti"
)

var (
	ErrUnsortedEvents = errors.New("input events are not sorted by time")
	ErrEventPastBlock = errors.New("event time is at or past the end of the block")
)

// BlockSink receives the pieces of one dispatched block, in time order.
type BlockSink interface {
	// ApplyEvent applies one event. Events sharing a timestamp arrive in
	// their queue order, between the renders surrounding that timestamp.
	ApplyEvent(e *tahti.Event) error
	// RenderRange renders the frames [from, to), 0 <= from < to.
	RenderRange(from, to int) error
}

// Dispatch partitions the block [0, frames) at every distinct event
// time and walks the pieces in order: all events at a timestamp are
// applied before the audio from that timestamp to the next one is
// rendered, so every event takes effect on exactly the frame it names.
// A zero-frame block is legal; its events must all sit at time 0 and no
// audio is rendered. Unsorted input and times at or past the end of the
// block are protocol violations: Dispatch stops at the first one and
// returns it, making no attempt to reorder or clip.
func Dispatch(events tahti.InEvents, frames int, sink BlockSink) error {
	frame := 0
	n := 0
	if events != nil {
		n = events.Len()
	}
	for i := 0; i < n; i++ {
		e := events.Get(i)
		t := int(e.Header.Time)
		if t < frame {
			return fmt.Errorf("%w: event %d at time %d, after %d", ErrUnsortedEvents, i, t, frame)
		}
		if t >= frames && (frames > 0 || t > 0) {
			return fmt.Errorf("%w: event %d at time %d in a %d frame block", ErrEventPastBlock, i, t, frames)
		}
		if t > frame {
			if err := sink.RenderRange(frame, t); err != nil {
				return err
			}
			frame = t
		}
		if err := sink.ApplyEvent(e); err != nil {
			return err
		}
	}
	if frame < frames {
		return sink.RenderRange(frame, frames)
	}
	return nil
}
