package engine_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/engine"
)

const (
	gainParam   tahti.ParamID = 1
	cutoffParam tahti.ParamID = 2
)

type (
	// testSynth is a scriptable synth: every sounding voice adds a
	// constant level to both channels, and a released voice keeps
	// sounding for releaseLen more frames before finishing.
	testSynth struct {
		level      float32
		releaseLen int
		tail       int
		voices     []testVoice
		global     map[tahti.ParamID]float64
		voiceVals  []map[tahti.ParamID]float64
		exprs      []expressionCall
		triggers   []int
	}

	testVoice struct {
		held     bool
		sounding bool
		key      byte
		velocity float64
		left     int
	}

	expressionCall struct {
		slot  int
		id    tahti.ExpressionID
		value float64
	}
)

func newTestSynth(voices, releaseLen int) *testSynth {
	s := &testSynth{
		level:      0.5,
		releaseLen: releaseLen,
		voices:     make([]testVoice, voices),
		global:     make(map[tahti.ParamID]float64),
		voiceVals:  make([]map[tahti.ParamID]float64, voices),
	}
	for i := range s.voiceVals {
		s.voiceVals[i] = make(map[tahti.ParamID]float64)
	}
	return s
}

func (s *testSynth) Render(buffer tahti.AudioBuffer) error {
	for i := range buffer {
		var sum float32
		for v := range s.voices {
			voice := &s.voices[v]
			if !voice.sounding {
				continue
			}
			if !voice.held {
				if voice.left <= 0 {
					voice.sounding = false
					continue
				}
				voice.left--
			}
			sum += s.level
		}
		buffer[i][0] += sum
		buffer[i][1] += sum
	}
	return nil
}

func (s *testSynth) Trigger(slot int, key byte, velocity float64) {
	s.voices[slot] = testVoice{held: true, sounding: true, key: key, velocity: velocity}
	s.voiceVals[slot] = make(map[tahti.ParamID]float64)
	s.triggers = append(s.triggers, slot)
}

func (s *testSynth) Release(slot int) {
	if s.voices[slot].held {
		s.voices[slot].held = false
		s.voices[slot].left = s.releaseLen
	}
}

func (s *testSynth) Choke(slot int) {
	s.voices[slot].sounding = false
	s.voices[slot].held = false
}

func (s *testSynth) Finished(slot int) bool { return !s.voices[slot].sounding }

func (s *testSynth) SetParameter(id tahti.ParamID, value float64) { s.global[id] = value }

func (s *testSynth) SetVoiceParameter(slot int, id tahti.ParamID, value float64) {
	s.voiceVals[slot][id] = value
}

func (s *testSynth) Params() []tahti.ParamInfo {
	return []tahti.ParamInfo{
		{ID: gainParam, Name: "gain", Min: 0, Max: 1, Default: 0.5, PerVoice: true},
		{ID: cutoffParam, Name: "cutoff", Min: 0, Max: 1, Default: 1, PerVoice: true},
	}
}

func (s *testSynth) VoiceInfo() tahti.VoiceInfo {
	return tahti.VoiceInfo{Count: len(s.voices), Capacity: len(s.voices)}
}

func (s *testSynth) TailFrames() int { return s.tail }

func (s *testSynth) SetVoiceExpression(slot int, id tahti.ExpressionID, value float64) {
	s.exprs = append(s.exprs, expressionCall{slot, id, value})
}

// bareSynth hides the optional interfaces of testSynth.
type bareSynth struct{ inner *testSynth }

func (s bareSynth) Render(buffer tahti.AudioBuffer) error { return s.inner.Render(buffer) }
func (s bareSynth) Trigger(slot int, key byte, velocity float64) {
	s.inner.Trigger(slot, key, velocity)
}
func (s bareSynth) Release(slot int)       { s.inner.Release(slot) }
func (s bareSynth) Choke(slot int)         { s.inner.Choke(slot) }
func (s bareSynth) Finished(slot int) bool { return s.inner.Finished(slot) }
func (s bareSynth) SetParameter(id tahti.ParamID, value float64) {
	s.inner.SetParameter(id, value)
}
func (s bareSynth) SetVoiceParameter(slot int, id tahti.ParamID, value float64) {
	s.inner.SetVoiceParameter(slot, id, value)
}

func queueOf(events ...tahti.Event) *tahti.Queue {
	q := tahti.NewQueue(len(events), 0)
	for i := range events {
		if !q.TryPush(&events[i]) {
			panic("queue did not take the event")
		}
	}
	return q
}

func specific(port, channel, key int16) (tahti.Target, tahti.Target, tahti.Target) {
	return tahti.Specific(port), tahti.Specific(channel), tahti.Specific(key)
}

func TestDriverNoteFlow(t *testing.T) {
	synth := newTestSynth(4, 100)
	d := engine.NewDriver(synth)
	out := tahti.NewQueue(16, 0)
	port, channel, key := specific(0, 0, 60)
	in := queueOf(
		tahti.NewNoteOn(0, 0, 0, 60, 0.8),
		tahti.NewNoteOff(32, port, channel, key, 0),
	)
	var statuses []tahti.Status
	for i := 0; i < 4; i++ {
		block := &tahti.Block{
			SteadyTime: int64(i * 64),
			Frames:     64,
			Out:        make(tahti.AudioBuffer, 64),
			OutEvents:  out,
		}
		if i == 0 {
			block.InEvents = in
		}
		statuses = append(statuses, d.Process(block))
		if i == 0 {
			if block.Out[0][0] != 0.5 || block.Out[63][1] != 0.5 {
				t.Errorf("first block should sound throughout: %v %v",
					block.Out[0], block.Out[63])
			}
		}
	}
	expected := []tahti.Status{
		tahti.StatusContinue,           // held, then releasing
		tahti.StatusContinue,           // still releasing
		tahti.StatusContinueIfNotQuiet, // release ran out mid-block
		tahti.StatusSleep,              // silence
	}
	if !reflect.DeepEqual(statuses, expected) {
		t.Errorf("wrong status sequence: got %v, expected %v", statuses, expected)
	}
	if out.Len() != 1 {
		t.Fatalf("expected exactly one note end, got %d events", out.Len())
	}
	end := out.Get(0)
	if end.Header.Type != tahti.EventNoteEnd {
		t.Fatalf("expected a note end, got %v", end.Header.Type)
	}
	if k, ok := end.Note.Key.Unpack(); !ok || k != 60 {
		t.Errorf("note end key: got %v, expected 60", end.Note.Key)
	}
	if end.Header.Time != 63 {
		t.Errorf("note end time: got %d, expected 63", end.Header.Time)
	}
}

func TestDriverChokeWhileReleasing(t *testing.T) {
	synth := newTestSynth(4, 1000)
	d := engine.NewDriver(synth)
	out := tahti.NewQueue(16, 0)
	port, channel, key := specific(0, 0, 60)
	in := queueOf(
		tahti.NewNoteOn(0, 0, 0, 60, 1),
		tahti.NewNoteOff(10, port, channel, key, 0),
		tahti.NewNoteChoke(20, port, channel, key),
	)
	status := d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 0,
		Out: make(tahti.AudioBuffer, 64), InEvents: in, OutEvents: out,
	})
	if d.Voices().Sounding() != 0 {
		t.Errorf("choke should terminate the releasing voice")
	}
	if status != tahti.StatusContinueIfNotQuiet {
		t.Errorf("status after choke: got %v, expected %v", status, tahti.StatusContinueIfNotQuiet)
	}
	// a choked voice never reports a note end, this block or later
	for i := 1; i < 3; i++ {
		d.Process(&tahti.Block{
			Frames: 64, SteadyTime: int64(i * 64),
			Out: make(tahti.AudioBuffer, 64), OutEvents: out,
		})
	}
	if out.Len() != 0 {
		t.Errorf("choked voice emitted %d events", out.Len())
	}
}

func TestDriverWildcardRelease(t *testing.T) {
	synth := newTestSynth(4, 100)
	d := engine.NewDriver(synth)
	in := queueOf(
		tahti.NewNoteOn(0, 0, 0, 60, 1),
		tahti.NewNoteOn(0, 0, 1, 62, 1),
		tahti.NewNoteOff(32, tahti.Any(), tahti.Any(), tahti.Any(), 0),
	)
	d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 0,
		Out: make(tahti.AudioBuffer, 64), InEvents: in,
	})
	if active := d.Voices().Active(); active != 0 {
		t.Errorf("wildcard off left %d voices active", active)
	}
	if sounding := d.Voices().Sounding(); sounding != 2 {
		t.Errorf("both voices should still be releasing, %d sounding", sounding)
	}
}

func TestDriverParamPrecedence(t *testing.T) {
	synth := newTestSynth(2, 0)
	d := engine.NewDriver(synth)
	in := queueOf(
		tahti.NewNoteOn(0, 0, 0, 60, 1),
		tahti.NewParamValue(0, gainParam, 0.5),
		tahti.NewParamMod(0, gainParam, 0.1),
		tahti.NewVoiceParamMod(0, gainParam, tahti.Any(), tahti.Any(), tahti.Specific(60), 0.2),
	)
	d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 0,
		Out: make(tahti.AudioBuffer, 64), InEvents: in,
	})
	slot := synth.triggers[0]
	if v := synth.global[gainParam]; !almost(v, 0.6) {
		t.Errorf("global effective: got %v, expected 0.6", v)
	}
	if v := synth.voiceVals[slot][gainParam]; !almost(v, 0.7) {
		t.Errorf("voice effective: got %v, expected 0.7", v)
	}
	// a later global base change must show through the voice's open axis
	in2 := queueOf(tahti.NewParamValue(0, gainParam, 0.3))
	d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 64,
		Out: make(tahti.AudioBuffer, 64), InEvents: in2,
	})
	if v := synth.global[gainParam]; !almost(v, 0.4) {
		t.Errorf("global effective after change: got %v, expected 0.4", v)
	}
	if v := synth.voiceVals[slot][gainParam]; !almost(v, 0.5) {
		t.Errorf("voice effective after change: got %v, expected 0.5", v)
	}
}

func TestDriverUnknownParamSkipped(t *testing.T) {
	synth := newTestSynth(2, 0)
	d := engine.NewDriver(synth)
	in := queueOf(tahti.NewParamValue(0, 12345, 1))
	status := d.Process(&tahti.Block{
		Frames: 16, SteadyTime: 0,
		Out: make(tahti.AudioBuffer, 16), InEvents: in,
	})
	if status == tahti.StatusError {
		t.Errorf("unknown parameter should not fail the block")
	}
	if _, skipped := d.Counters(); skipped != 1 {
		t.Errorf("skipped counter: got %d, expected 1", skipped)
	}
}

func TestDriverTransportFlow(t *testing.T) {
	synth := newTestSynth(2, 0)
	d := engine.NewDriver(synth)
	d.Process(&tahti.Block{
		Frames: 16, SteadyTime: 0, Out: make(tahti.AudioBuffer, 16),
		Transport: &tahti.TransportData{
			Flags: tahti.TransportHasTempo | tahti.TransportIsPlaying,
			Tempo: 120,
		},
	})
	if d.Transport().Mode() != engine.Synced || !d.Transport().Playing() {
		t.Fatalf("driver should be synced and playing")
	}
	// a nil transport reference resets, however recent the snapshot
	d.Process(&tahti.Block{Frames: 16, SteadyTime: 16, Out: make(tahti.AudioBuffer, 16)})
	if d.Transport().Mode() != engine.NoTransport {
		t.Errorf("nil transport should hard reset the tracker")
	}
	// a transport event mid-block resyncs even without a block snapshot
	in := queueOf(tahti.NewTransport(8, tahti.TransportData{
		Flags: tahti.TransportHasTempo, Tempo: 140,
	}))
	d.Process(&tahti.Block{
		Frames: 16, SteadyTime: 32, Out: make(tahti.AudioBuffer, 16), InEvents: in,
	})
	if tempo, ok := d.Transport().TempoAt(8); !ok || tempo != 140 {
		t.Errorf("tempo after mid-block event: got %v, %v, expected 140, true", tempo, ok)
	}
}

func TestDriverViolations(t *testing.T) {
	for _, c := range []struct {
		name  string
		block tahti.Block
	}{
		{"unsorted events", tahti.Block{
			Frames: 64, SteadyTime: 0, Out: make(tahti.AudioBuffer, 64),
			InEvents: eventsAt(10, 5),
		}},
		{"event past block", tahti.Block{
			Frames: 64, SteadyTime: 0, Out: make(tahti.AudioBuffer, 64),
			InEvents: eventsAt(64),
		}},
		{"negative frames", tahti.Block{Frames: -1, SteadyTime: 0}},
		{"short output", tahti.Block{
			Frames: 64, SteadyTime: 0, Out: make(tahti.AudioBuffer, 32),
		}},
		{"short input", tahti.Block{
			Frames: 64, SteadyTime: 0, Out: make(tahti.AudioBuffer, 64),
			In: make(tahti.AudioBuffer, 32),
		}},
	} {
		d := engine.NewDriver(newTestSynth(2, 0))
		if status := d.Process(&c.block); status != tahti.StatusError {
			t.Errorf("%s: got %v, expected %v", c.name, status, tahti.StatusError)
		}
	}
}

func TestDriverSteadyTime(t *testing.T) {
	d := engine.NewDriver(newTestSynth(2, 0))
	block := func(steady int64, frames int) tahti.Status {
		return d.Process(&tahti.Block{
			Frames: frames, SteadyTime: steady, Out: make(tahti.AudioBuffer, frames),
		})
	}
	if status := block(100, 64); status == tahti.StatusError {
		t.Fatalf("first block should pass")
	}
	if status := block(163, 64); status != tahti.StatusError {
		t.Errorf("steady time must grow by at least the frame count")
	}
	// the failed block must not poison the bookkeeping
	if status := block(164, 0); status == tahti.StatusError {
		t.Errorf("steady 164 after 100+64 should pass")
	}
	// a zero-frame block allows an equal steady time next
	if status := block(164, 64); status == tahti.StatusError {
		t.Errorf("steady may stand still after a zero-frame block")
	}
	// unknown steady time is always allowed
	if status := block(tahti.SteadyTimeUnknown, 64); status == tahti.StatusError {
		t.Errorf("unknown steady time should pass")
	}
	if status := block(0, 64); status == tahti.StatusError {
		t.Errorf("steady after unknown should pass whatever its value")
	}
}

func TestDriverZeroFrameBlock(t *testing.T) {
	d := engine.NewDriver(newTestSynth(2, 100))
	in := queueOf(tahti.NewNoteOn(0, 0, 0, 60, 1))
	status := d.Process(&tahti.Block{Frames: 0, SteadyTime: 0, InEvents: in})
	if status != tahti.StatusContinue {
		t.Errorf("status: got %v, expected %v", status, tahti.StatusContinue)
	}
	if d.Voices().Active() != 1 {
		t.Errorf("the note on should apply even without audio")
	}
}

func TestDriverEndBacklog(t *testing.T) {
	synth := newTestSynth(4, 0)
	d := engine.NewDriver(synth)
	out := tahti.NewQueue(1, 0)
	in := queueOf(
		tahti.NewNoteOn(0, 0, 0, 60, 1),
		tahti.NewNoteOn(0, 0, 0, 62, 1),
		tahti.NewNoteOff(32, tahti.Any(), tahti.Any(), tahti.Any(), 0),
	)
	status := d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 0,
		Out: make(tahti.AudioBuffer, 64), InEvents: in, OutEvents: out,
	})
	if out.Len() != 1 {
		t.Fatalf("the full queue should hold one end, got %d", out.Len())
	}
	if d.PendingEnds() != 1 {
		t.Fatalf("one end should wait in the backlog, got %d", d.PendingEnds())
	}
	if status == tahti.StatusSleep {
		t.Errorf("the driver must not sleep while ends are pending")
	}
	// the backlog drains into the next block, while the stream never failed
	out2 := tahti.NewQueue(1, 0)
	d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 64,
		Out: make(tahti.AudioBuffer, 64), OutEvents: out2,
	})
	if out2.Len() != 1 || out2.Get(0).Header.Type != tahti.EventNoteEnd {
		t.Fatalf("the backlogged end should go out in the next block")
	}
	if out2.Get(0).Header.Time != 0 {
		t.Errorf("a retried end applies at the start of the block")
	}
	if d.PendingEnds() != 0 {
		t.Errorf("backlog should be empty, %d pending", d.PendingEnds())
	}
}

func TestDriverStagedEvents(t *testing.T) {
	broker := engine.NewBroker()
	synth := newTestSynth(2, 0)
	d := engine.NewDriver(synth, engine.WithBroker(broker))
	if !broker.StageEvent(tahti.NewNoteOn(999, 0, 0, 60, 1)) {
		t.Fatalf("staging should succeed")
	}
	d.Process(&tahti.Block{Frames: 16, SteadyTime: 0, Out: make(tahti.AudioBuffer, 16)})
	if d.Voices().Active() != 1 {
		t.Fatalf("the staged note should start at the block boundary")
	}
	engine.TrySend(broker.ToDriver, any(engine.PanicMsg{}))
	out := tahti.NewQueue(4, 0)
	d.Process(&tahti.Block{
		Frames: 16, SteadyTime: 16, Out: make(tahti.AudioBuffer, 16), OutEvents: out,
	})
	if d.Voices().Sounding() != 0 {
		t.Errorf("panic should choke every voice")
	}
	if out.Len() != 0 {
		t.Errorf("choked voices emit no ends, got %d events", out.Len())
	}
}

func TestDriverObserver(t *testing.T) {
	broker := engine.NewBroker()
	synth := newTestSynth(2, 100)
	d := engine.NewDriver(synth, engine.WithBroker(broker))
	in := queueOf(tahti.NewNoteOn(0, 0, 0, 60, 1))
	d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 5,
		Out: make(tahti.AudioBuffer, 64), InEvents: in,
	})
	msg, ok := engine.TimeoutReceive(broker.ToObserver, time.Second)
	if !ok {
		t.Fatalf("no observer message arrived")
	}
	if msg.Status != tahti.StatusContinue || msg.Frames != 64 || msg.SteadyTime != 5 {
		t.Errorf("wrong report: %+v", msg)
	}
	if msg.VoicesActive != 1 || msg.EventsIn != 1 {
		t.Errorf("wrong counts: %+v", msg)
	}
	if msg.Peak != 0.5 {
		t.Errorf("peak: got %v, expected 0.5", msg.Peak)
	}
	buf, ok := msg.Data.(*tahti.AudioBuffer)
	if !ok || len(*buf) != 64 || (*buf)[0][0] != 0.5 {
		t.Fatalf("the report should carry a copy of the audio")
	}
	broker.PutAudioBuffer(buf)
}

func TestDriverViolationAlert(t *testing.T) {
	broker := engine.NewBroker()
	d := engine.NewDriver(newTestSynth(2, 0), engine.WithBroker(broker))
	d.Process(&tahti.Block{Frames: -1, SteadyTime: 0})
	msg, ok := engine.TimeoutReceive(broker.ToObserver, time.Second)
	if !ok || msg.Status != tahti.StatusError {
		t.Fatalf("expected an error report, got %+v, %v", msg, ok)
	}
	alert, ok := msg.Data.(engine.Alert)
	if !ok || alert.Priority != engine.AlertError {
		t.Errorf("expected an error alert, got %+v", msg.Data)
	}
	if alert.Name != "ProtocolViolation" {
		t.Errorf("alert name: got %q", alert.Name)
	}
}

func TestDriverMIDIDialect(t *testing.T) {
	synth := newTestSynth(2, 100)
	d := engine.NewDriver(synth)
	in := queueOf(
		tahti.NewMIDI(0, 0, [3]byte{0x91, 60, 100}),
		tahti.NewMIDI(32, 0, [3]byte{0x81, 60, 0}),
		tahti.NewMIDI(40, 0, [3]byte{0xb0, 7, 100}),
	)
	d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 0,
		Out: make(tahti.AudioBuffer, 64), InEvents: in,
	})
	if d.Voices().Active() != 0 || d.Voices().Sounding() != 1 {
		t.Errorf("midi note should be releasing: %d active, %d sounding",
			d.Voices().Active(), d.Voices().Sounding())
	}
	slot := synth.triggers[0]
	if vel := synth.voices[slot].velocity; !almost(vel, float64(100)/127) {
		t.Errorf("midi velocity: got %v, expected %v", vel, float64(100)/127)
	}
	note := d.Voices().Note(slot)
	if note.Channel != 1 || note.Key != 60 {
		t.Errorf("midi note identity: got %+v", note)
	}
	if _, skipped := d.Counters(); skipped != 1 {
		t.Errorf("the control change should be counted: got %d", skipped)
	}
}

func TestDriverExpressionRouting(t *testing.T) {
	synth := newTestSynth(2, 0)
	d := engine.NewDriver(synth)
	in := queueOf(
		tahti.NewNoteOn(0, 0, 0, 60, 1),
		tahti.NewNoteExpression(10, tahti.ExpressionBrightness,
			tahti.Any(), tahti.Any(), tahti.Specific(60), 0.8),
	)
	d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 0,
		Out: make(tahti.AudioBuffer, 64), InEvents: in,
	})
	if len(synth.exprs) != 1 {
		t.Fatalf("expected one expression call, got %d", len(synth.exprs))
	}
	call := synth.exprs[0]
	if call.slot != synth.triggers[0] || call.id != tahti.ExpressionBrightness || call.value != 0.8 {
		t.Errorf("wrong expression call: %+v", call)
	}
}

func TestDriverRetriggerAndIgnore(t *testing.T) {
	synth := newTestSynth(4, 0)
	d := engine.NewDriver(synth)
	out := tahti.NewQueue(4, 0)
	in := queueOf(
		tahti.NewNoteOn(0, 0, 0, 60, 0.5),
		tahti.NewNoteOn(10, 0, 0, 60, 0.9),
	)
	d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 0,
		Out: make(tahti.AudioBuffer, 64), InEvents: in, OutEvents: out,
	})
	if len(synth.triggers) != 2 || synth.triggers[0] != synth.triggers[1] {
		t.Errorf("retrigger should reuse the slot: %v", synth.triggers)
	}

	synth = newTestSynth(4, 0)
	d = engine.NewDriver(synth, engine.WithDuplicatePolicy(engine.Ignore))
	in = queueOf(
		tahti.NewNoteOn(0, 0, 0, 60, 0.5),
		tahti.NewNoteOn(10, 0, 0, 60, 0.9),
	)
	d.Process(&tahti.Block{
		Frames: 64, SteadyTime: 0,
		Out: make(tahti.AudioBuffer, 64), InEvents: in,
	})
	if len(synth.triggers) != 1 {
		t.Errorf("ignore should drop the duplicate: %v", synth.triggers)
	}
}

func TestDriverTailStatus(t *testing.T) {
	synth := newTestSynth(2, 0)
	synth.tail = 100
	d := engine.NewDriver(synth)
	port, channel, key := specific(0, 0, 60)
	in := queueOf(
		tahti.NewNoteOn(0, 0, 0, 60, 1),
		tahti.NewNoteOff(32, port, channel, key, 0),
	)
	out := tahti.NewQueue(4, 0)
	var statuses []tahti.Status
	for i := 0; i < 3; i++ {
		block := &tahti.Block{
			Frames: 64, SteadyTime: int64(i * 64),
			Out: make(tahti.AudioBuffer, 64), OutEvents: out,
		}
		if i == 0 {
			block.InEvents = in
		}
		statuses = append(statuses, d.Process(block))
	}
	expected := []tahti.Status{tahti.StatusTail, tahti.StatusTail, tahti.StatusSleep}
	if !reflect.DeepEqual(statuses, expected) {
		t.Errorf("wrong status sequence: got %v, expected %v", statuses, expected)
	}
}

func TestDriverCapabilities(t *testing.T) {
	synth := newTestSynth(4, 0)
	synth.tail = 100
	d := engine.NewDriver(synth, engine.WithVoices(16))
	tailer, ok := d.Capability(tahti.CapTail).(tahti.Tailer)
	if !ok || tailer.TailFrames() != 100 {
		t.Errorf("tail capability should reach the synth")
	}
	provider, ok := d.Capability(tahti.CapVoiceInfo).(tahti.VoiceInfoProvider)
	if !ok {
		t.Fatalf("voice info capability missing")
	}
	// the synth only has 4 voices, whatever the driver was asked for
	if info := provider.VoiceInfo(); info.Count != 4 || info.Capacity != 4 {
		t.Errorf("voice info: got %+v, expected 4/4", info)
	}
	if d.Capability(tahti.CapNoteExpression) == nil {
		t.Errorf("expression capability should reach the synth")
	}
	if d.Capability("tahti.gui") != nil {
		t.Errorf("unknown capabilities answer nil")
	}

	bare := engine.NewDriver(bareSynth{newTestSynth(4, 0)}, engine.WithVoices(8))
	if bare.Capability(tahti.CapTail) != nil {
		t.Errorf("a synth without a tail should not answer the capability")
	}
	if bare.Capability(tahti.CapNoteExpression) != nil {
		t.Errorf("a synth without expressions should not answer the capability")
	}
	provider, ok = bare.Capability(tahti.CapVoiceInfo).(tahti.VoiceInfoProvider)
	if !ok {
		t.Fatalf("the driver always knows its voice table")
	}
	if info := provider.VoiceInfo(); info.Count != 8 || info.Capacity != 8 {
		t.Errorf("voice info: got %+v, expected 8/8", info)
	}
}
