package tahti_test

import (
	"testing"

	"github.com/vsariola/tahti"
)

func TestNoteOnTargetsAreSpecific(t *testing.T) {
	e := tahti.NewNoteOn(7, 0, 3, 64, 0.8)
	if e.Header.Type != tahti.EventNoteOn || e.Header.Time != 7 {
		t.Fatalf("unexpected header %+v", e.Header)
	}
	for _, target := range []tahti.Target{e.Note.Port, e.Note.Channel, e.Note.Key} {
		if target.IsAny() {
			t.Fatalf("note on constructor produced a wildcard target")
		}
	}
}

func TestGlobalParamEventsTargetEverything(t *testing.T) {
	for _, e := range []tahti.Event{
		tahti.NewParamValue(0, 9, 0.5),
		tahti.NewParamMod(0, 9, 0.1),
		tahti.NewParamGesture(0, 9, true),
	} {
		if !e.Param.Port.IsAny() || !e.Param.Channel.IsAny() || !e.Param.Key.IsAny() {
			t.Fatalf("%v is not globally scoped", e.Header.Type)
		}
	}
}

func TestParamGestureTypes(t *testing.T) {
	if e := tahti.NewParamGesture(0, 1, true); e.Header.Type != tahti.EventParamGestureBegin {
		t.Fatalf("gesture begin got type %v", e.Header.Type)
	}
	if e := tahti.NewParamGesture(0, 1, false); e.Header.Type != tahti.EventParamGestureEnd {
		t.Fatalf("gesture end got type %v", e.Header.Type)
	}
}

func TestEventTypeString(t *testing.T) {
	if got := tahti.EventNoteChoke.String(); got != "note choke" {
		t.Errorf("EventNoteChoke.String() got %q", got)
	}
	if got := tahti.EventType(200).String(); got != "unknown event type 200" {
		t.Errorf("unknown type String() got %q", got)
	}
}
