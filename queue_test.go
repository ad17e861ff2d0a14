package tahti_test

import (
	"testing"

	"github.com/vsariola/tahti"
)

func TestQueueTryPushFull(t *testing.T) {
	q := tahti.NewQueue(2, 0)
	a := tahti.NewNoteOn(0, 0, 0, 60, 1)
	b := tahti.NewNoteOn(5, 0, 0, 64, 1)
	c := tahti.NewNoteOn(9, 0, 0, 67, 1)
	if !q.TryPush(&a) || !q.TryPush(&b) {
		t.Fatalf("pushing within capacity failed")
	}
	if q.TryPush(&c) {
		t.Fatalf("pushing to a full queue succeeded")
	}
	if q.Len() != 2 {
		t.Fatalf("queue length changed by a failed push, got %v, expected 2", q.Len())
	}
	if got := q.Get(1).Note.Key; !got.Matches(64) || got.IsAny() {
		t.Fatalf("failed push modified queue contents, last key target %v", got)
	}
}

func TestQueueTryPushCopies(t *testing.T) {
	q := tahti.NewQueue(4, 0)
	e := tahti.NewNoteOn(3, 1, 2, 72, 0.5)
	if !q.TryPush(&e) {
		t.Fatalf("push failed")
	}
	e.Note.Velocity = 0.9
	e.Header.Time = 100
	got := q.Get(0)
	if got.Header.Time != 3 || got.Note.Velocity != 0.5 {
		t.Fatalf("queued event changed when the original was modified: %v", got)
	}
	if got.Header.Type != tahti.EventNoteOn {
		t.Fatalf("queued event type got %v, expected %v", got.Header.Type, tahti.EventNoteOn)
	}
	key, ok := got.Note.Key.Unpack()
	if !ok || key != 72 {
		t.Fatalf("queued event key got %v/%v, expected 72/true", key, ok)
	}
}

func TestQueueTryPushRejectsBackwardsTime(t *testing.T) {
	q := tahti.NewQueue(4, 0)
	a := tahti.NewParamValue(10, 1, 0.5)
	b := tahti.NewParamValue(9, 1, 0.6)
	c := tahti.NewParamValue(10, 1, 0.7)
	if !q.TryPush(&a) {
		t.Fatalf("first push failed")
	}
	if q.TryPush(&b) {
		t.Fatalf("push running backwards in time succeeded")
	}
	if !q.TryPush(&c) {
		t.Fatalf("push at equal time failed")
	}
	if q.Len() != 2 {
		t.Fatalf("queue length got %v, expected 2", q.Len())
	}
}

func TestQueueSysexArena(t *testing.T) {
	q := tahti.NewQueue(4, 8)
	payload := []byte{0xf0, 1, 2, 3, 0xf7}
	e := tahti.Event{
		Header: tahti.EventHeader{Time: 0, Type: tahti.EventMIDISysex},
		MIDI:   tahti.MIDIData{Sysex: payload},
	}
	if !q.TryPush(&e) {
		t.Fatalf("sysex push failed")
	}
	payload[1] = 99
	if got := q.Get(0).MIDI.Sysex[1]; got != 1 {
		t.Fatalf("queue did not copy the sysex payload, got %v, expected 1", got)
	}
	big := tahti.Event{
		Header: tahti.EventHeader{Time: 1, Type: tahti.EventMIDISysex},
		MIDI:   tahti.MIDIData{Sysex: make([]byte, 4)},
	}
	if q.TryPush(&big) {
		t.Fatalf("sysex push beyond arena capacity succeeded")
	}
	if q.Len() != 1 {
		t.Fatalf("failed sysex push changed the queue, length %v", q.Len())
	}
}

func TestQueueReset(t *testing.T) {
	q := tahti.NewQueue(2, 0)
	e := tahti.NewNoteOn(0, 0, 0, 60, 1)
	q.TryPush(&e)
	q.Reset()
	if q.Len() != 0 {
		t.Fatalf("queue length after reset got %v, expected 0", q.Len())
	}
	late := tahti.NewNoteOn(0, 0, 0, 61, 1)
	if !q.TryPush(&late) {
		t.Fatalf("push after reset failed")
	}
}

func TestSorted(t *testing.T) {
	q := tahti.NewQueue(4, 0)
	for _, time := range []uint32{0, 3, 3, 7} {
		e := tahti.NewParamValue(time, 1, 0.5)
		if !q.TryPush(&e) {
			t.Fatalf("push failed")
		}
	}
	if !tahti.Sorted(q) {
		t.Fatalf("queue filled through TryPush reported unsorted")
	}
}
