// Package tahti defines the data model of a sample-accurate event
// protocol between an audio host and a plugin: timestamped note,
// parameter and transport events, bounded event queues, process block
// descriptors and the capability surface of a plugin.
package tahti

import (
	"fmt"
	"strconv"
)

// EventType identifies which payload of an Event is meaningful.
type EventType uint16

const (
	EventNoteOn EventType = iota
	EventNoteOff
	EventNoteChoke
	EventNoteEnd
	EventNoteExpression
	EventParamValue
	EventParamMod
	EventParamGestureBegin
	EventParamGestureEnd
	EventTransport
	EventMIDI
	EventMIDISysex
	EventMIDI2
	NumEventTypes
)

var eventTypeNames = [NumEventTypes]string{
	"note on", "note off", "note choke", "note end", "note expression",
	"param value", "param mod", "param gesture begin", "param gesture end",
	"transport", "midi", "midi sysex", "midi2",
}

func (t EventType) String() string {
	if t >= NumEventTypes {
		return fmt.Sprintf("unknown event type %d", uint16(t))
	}
	return eventTypeNames[t]
}

// EventFlags carry hints about an event's origin; they never change how
// the event is applied.
type EventFlags uint32

const (
	// EventIsLive marks an event that came from a live user action, as
	// opposed to playback of recorded material.
	EventIsLive EventFlags = 1 << iota
	// EventDontRecord asks the host not to record this event.
	EventDontRecord
)

// EventHeader is common to every event. Time is the frame offset from
// the start of the current block; it must be less than the block's
// Frames (a zero-frame block may still carry events at time 0).
type EventHeader struct {
	Time  uint32
	Space uint16
	Type  EventType
	Flags EventFlags
}

// CoreSpace is the event space of the types defined in this package.
// Events in other spaces are skipped by the engine, not rejected.
const CoreSpace uint16 = 0

// ParamID identifies a parameter. IDs are stable for the lifetime of a
// plugin instance and need not be contiguous.
type ParamID uint32

// NoteData is the payload of note on/off/choke/end events. For note on
// all three targets must be specific; off and choke may use Any on any
// axis to address several voices at once. A note end always carries the
// exact triple of the note on that started the voice.
type NoteData struct {
	Port     Target
	Channel  Target
	Key      Target
	Velocity float64 // 0..1
	Voice    VoiceRef
}

// ExpressionID identifies a per-note expression dimension.
type ExpressionID uint16

const (
	ExpressionVolume     ExpressionID = iota // 0 < x <= 4, plain = 20 * log(x)
	ExpressionPan                            // 0 left, 0.5 center, 1 right
	ExpressionTuning                         // relative tuning in semitones, -120..120
	ExpressionVibrato                        // 0..1
	ExpressionAmount                         // 0..1
	ExpressionBrightness                     // 0..1
	ExpressionPressure                       // 0..1
)

// ExpressionData is the payload of note expression events.
type ExpressionData struct {
	ID      ExpressionID
	Port    Target
	Channel Target
	Key     Target
	Voice   VoiceRef
	Value   float64
}

// ParamData is the payload of parameter value, mod and gesture events.
// An event with all targets Any addresses the global scope; specific
// targets (or a voice reference) address single voices. Value holds the
// new base value for EventParamValue and the modulation amount for
// EventParamMod; gestures carry no value.
type ParamData struct {
	ID      ParamID
	Port    Target
	Channel Target
	Key     Target
	Voice   VoiceRef
	Value   float64
}

// MIDIData is the payload of raw MIDI events: 3 bytes for MIDI 1.0, 4
// words for MIDI 2.0 packets, or an arbitrary sysex blob. Sysex bytes
// pushed to a Queue are copied into the queue's own arena, so Sysex in
// a queued event stays valid only as long as the queue.
type MIDIData struct {
	Port  int16
	Data  [3]byte
	Words [4]uint32
	Sysex []byte
}

// Event is one timestamped message. Only the payload named by
// Header.Type is meaningful; the other payloads stay zero. Events are
// values: pushing one to a queue stores a copy, so the producer may
// reuse or modify its own afterwards.
type Event struct {
	Header     EventHeader
	Note       NoteData
	Expression ExpressionData
	Param      ParamData
	Transport  TransportData
	MIDI       MIDIData
}

// NewNoteOn makes a note on event. Note ons address exactly one voice,
// so the targets are specific values, not matchers.
func NewNoteOn(time uint32, port, channel, key int16, velocity float64) Event {
	return Event{
		Header: EventHeader{Time: time, Type: EventNoteOn},
		Note: NoteData{
			Port:     Specific(port),
			Channel:  Specific(channel),
			Key:      Specific(key),
			Velocity: velocity,
		},
	}
}

// NewNoteOff makes a note off event. Any target releases every voice
// matching on that axis.
func NewNoteOff(time uint32, port, channel, key Target, velocity float64) Event {
	return Event{
		Header: EventHeader{Time: time, Type: EventNoteOff},
		Note:   NoteData{Port: port, Channel: channel, Key: key, Velocity: velocity},
	}
}

// NewNoteChoke makes a note choke event, which silences matching voices
// immediately instead of letting them ring out.
func NewNoteChoke(time uint32, port, channel, key Target) Event {
	return Event{
		Header: EventHeader{Time: time, Type: EventNoteChoke},
		Note:   NoteData{Port: port, Channel: channel, Key: key},
	}
}

// NewNoteExpression makes a note expression event for the voices
// matching the given targets.
func NewNoteExpression(time uint32, id ExpressionID, port, channel, key Target, value float64) Event {
	return Event{
		Header:     EventHeader{Time: time, Type: EventNoteExpression},
		Expression: ExpressionData{ID: id, Port: port, Channel: channel, Key: key, Value: value},
	}
}

// NewNoteEnd makes a note end event, sent by the plugin when a voice
// has fully finished. The triple is the one the matching note on used.
func NewNoteEnd(time uint32, port, channel, key int16) Event {
	return Event{
		Header: EventHeader{Time: time, Type: EventNoteEnd},
		Note:   NoteData{Port: Specific(port), Channel: Specific(channel), Key: Specific(key)},
	}
}

// NewParamValue makes a global parameter base value change.
func NewParamValue(time uint32, id ParamID, value float64) Event {
	return Event{
		Header: EventHeader{Time: time, Type: EventParamValue},
		Param:  ParamData{ID: id, Port: Any(), Channel: Any(), Key: Any(), Value: value},
	}
}

// NewParamMod makes a global parameter modulation change. The amount
// replaces the previous modulation for the same scope, it does not
// accumulate.
func NewParamMod(time uint32, id ParamID, amount float64) Event {
	return Event{
		Header: EventHeader{Time: time, Type: EventParamMod},
		Param:  ParamData{ID: id, Port: Any(), Channel: Any(), Key: Any(), Value: amount},
	}
}

// NewVoiceParamValue makes a parameter base value change scoped to the
// voices matching the given targets.
func NewVoiceParamValue(time uint32, id ParamID, port, channel, key Target, value float64) Event {
	return Event{
		Header: EventHeader{Time: time, Type: EventParamValue},
		Param:  ParamData{ID: id, Port: port, Channel: channel, Key: key, Value: value},
	}
}

// NewVoiceParamMod makes a modulation change scoped to the voices
// matching the given targets. A voice hearing a voice-scoped modulation
// ignores the global modulation for that parameter entirely.
func NewVoiceParamMod(time uint32, id ParamID, port, channel, key Target, amount float64) Event {
	return Event{
		Header: EventHeader{Time: time, Type: EventParamMod},
		Param:  ParamData{ID: id, Port: port, Channel: channel, Key: key, Value: amount},
	}
}

// NewParamGesture makes a gesture begin or end marker for a parameter.
// Gestures bracket user interactions and never change values.
func NewParamGesture(time uint32, id ParamID, begin bool) Event {
	t := EventParamGestureEnd
	if begin {
		t = EventParamGestureBegin
	}
	return Event{
		Header: EventHeader{Time: time, Type: t},
		Param:  ParamData{ID: id, Port: Any(), Channel: Any(), Key: Any()},
	}
}

// NewTransport makes a transport snapshot event.
func NewTransport(time uint32, transport TransportData) Event {
	return Event{
		Header:    EventHeader{Time: time, Type: EventTransport},
		Transport: transport,
	}
}

// NewMIDI makes a raw MIDI 1.0 event.
func NewMIDI(time uint32, port int16, data [3]byte) Event {
	return Event{
		Header: EventHeader{Time: time, Type: EventMIDI},
		MIDI:   MIDIData{Port: port, Data: data},
	}
}

// String gives a short one-line description, for diagnostics and traces.
func (e *Event) String() string {
	h := e.Header
	switch h.Type {
	case EventNoteOn, EventNoteOff, EventNoteChoke, EventNoteEnd:
		return fmt.Sprintf("%d %v port=%v ch=%v key=%v vel=%.3f",
			h.Time, h.Type, e.Note.Port, e.Note.Channel, e.Note.Key, e.Note.Velocity)
	case EventNoteExpression:
		return fmt.Sprintf("%d %v id=%d key=%v value=%.3f",
			h.Time, h.Type, e.Expression.ID, e.Expression.Key, e.Expression.Value)
	case EventParamValue, EventParamMod:
		return fmt.Sprintf("%d %v param=%d port=%v ch=%v key=%v value=%.3f",
			h.Time, h.Type, e.Param.ID, e.Param.Port, e.Param.Channel, e.Param.Key, e.Param.Value)
	case EventParamGestureBegin, EventParamGestureEnd:
		return fmt.Sprintf("%d %v param=%d", h.Time, h.Type, e.Param.ID)
	case EventTransport:
		return fmt.Sprintf("%d %v tempo=%.2f flags=%s",
			h.Time, h.Type, e.Transport.Tempo, strconv.FormatUint(uint64(e.Transport.Flags), 2))
	case EventMIDI:
		return fmt.Sprintf("%d %v port=%d data=% x", h.Time, h.Type, e.MIDI.Port, e.MIDI.Data)
	case EventMIDISysex:
		return fmt.Sprintf("%d %v port=%d len=%d", h.Time, h.Type, e.MIDI.Port, len(e.MIDI.Sysex))
	case EventMIDI2:
		return fmt.Sprintf("%d %v port=%d words=%x", h.Time, h.Type, e.MIDI.Port, e.MIDI.Words)
	}
	return fmt.Sprintf("%d %v", h.Time, h.Type)
}
