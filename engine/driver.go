package engine

import (
	"errors"
	"fmt"

	"github.com/vsariola/tahti"
)

var (
	ErrShortBuffer = errors.New("audio buffer shorter than the block")
	ErrBadFrames   = errors.New("negative frame count")
	ErrSteadyTime  = errors.New("steady time went backwards")
)

type (
	// Driver turns a Synth into a Plugin. It owns the voice table, the
	// parameter state and the transport snapshot, feeds the synth slot
	// by slot, and authors the note ends the host needs to retire its
	// voices. Process never allocates once the driver is warm; the only
	// exceptions are blocks longer than the declared maximum and the
	// diagnostics of a block that already failed.
	//
	// The driver reads the block's input buffer length for validation
	// but never its samples; synths make their own sound.
	Driver struct {
		synth     tahti.Synth
		voices    *VoiceTracker
		params    *ParamResolver
		transport *TransportTracker
		detector  *Detector
		broker    *Broker

		tailer     tahti.Tailer
		exprs      tahti.ExpressionSink
		voiceInfo  tahti.VoiceInfo
		quietLevel float32

		lastSteady  int64
		lastFrames  int
		wasSounding bool
		tailLeft    int

		block         *tahti.Block
		eventsIn      int
		droppedEnds   uint64
		skippedEvents uint64

		slots      []int
		endBacklog []tahti.Event
	}

	DriverOption func(*driverConfig)

	driverConfig struct {
		voices     int
		policy     DuplicatePolicy
		maxFrames  int
		quietLevel float32
		broker     *Broker
	}
)

const (
	defaultVoices     = 32
	defaultMaxFrames  = 4096
	defaultQuietLevel = 1e-4
)

// WithVoices caps how many voices the driver plays at once. The synth
// may cap it further through its voice info.
func WithVoices(n int) DriverOption {
	return func(cfg *driverConfig) { cfg.voices = n }
}

// WithDuplicatePolicy sets what a note on does when its triple is
// already active.
func WithDuplicatePolicy(policy DuplicatePolicy) DriverOption {
	return func(cfg *driverConfig) { cfg.policy = policy }
}

// WithMaxFrames declares the longest block the host will send, sizing
// the scratch buffers.
func WithMaxFrames(n int) DriverOption {
	return func(cfg *driverConfig) { cfg.maxFrames = n }
}

// WithQuietLevel sets the peak level below which a tail-less output
// counts as quiet and the driver asks to sleep.
func WithQuietLevel(level float32) DriverOption {
	return func(cfg *driverConfig) { cfg.quietLevel = level }
}

// WithBroker attaches a broker: the driver drains staged events from it
// at every block boundary and reports each block to its observers.
func WithBroker(broker *Broker) DriverOption {
	return func(cfg *driverConfig) { cfg.broker = broker }
}

func NewDriver(synth tahti.Synth, opts ...DriverOption) *Driver {
	cfg := driverConfig{
		voices:     defaultVoices,
		maxFrames:  defaultMaxFrames,
		quietLevel: defaultQuietLevel,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	capacity := cfg.voices
	if capacity < 1 {
		capacity = 1
	}
	info := tahti.VoiceInfo{Count: capacity, Capacity: capacity}
	if provider, ok := synth.(tahti.VoiceInfoProvider); ok {
		si := provider.VoiceInfo()
		if si.Capacity > 0 && si.Capacity < capacity {
			capacity = si.Capacity
		}
		info = si
	}
	if info.Count < 1 {
		info.Count = 1
	}
	if info.Count > capacity {
		info.Count = capacity
	}
	info.Capacity = capacity
	var infos []tahti.ParamInfo
	if lister, ok := synth.(tahti.ParamLister); ok {
		infos = lister.Params()
	}
	d := &Driver{
		synth:      synth,
		voices:     NewVoiceTracker(capacity, cfg.policy),
		params:     NewParamResolver(infos, capacity),
		transport:  NewTransportTracker(),
		detector:   NewDetector(cfg.maxFrames),
		broker:     cfg.broker,
		quietLevel: cfg.quietLevel,
		lastSteady: tahti.SteadyTimeUnknown,
		voiceInfo:  info,
		slots:      make([]int, 0, capacity),
		endBacklog: make([]tahti.Event, 0, 2*capacity),
	}
	d.tailer, _ = synth.(tahti.Tailer)
	d.exprs, _ = synth.(tahti.ExpressionSink)
	for _, pi := range infos {
		synth.SetParameter(pi.ID, pi.Default)
	}
	return d
}

// Process implements tahti.Plugin. The block is validated, its events
// are applied sample accurately between partial renders, voices that
// finished are reported back, and the returned status tells the host
// whether the output is worth asking for again.
func (d *Driver) Process(block *tahti.Block) tahti.Status {
	d.eventsIn = 0
	if err := d.validate(block); err != nil {
		return d.fail(block, err)
	}
	d.block = block
	if block.Frames > 0 {
		block.Out[:block.Frames].Clear()
	}
	d.transport.BeginBlock(block.Transport)
	d.flushEnds()
	d.drainStaged()
	if err := Dispatch(block.InEvents, block.Frames, d); err != nil {
		d.block = nil
		return d.fail(block, err)
	}
	d.reapFinished()
	sounding := d.voices.Sounding()
	levels := d.detector.Analyze(block.Out[:block.Frames])
	d.voices.Advance(block.Frames)
	status := d.status(sounding, block.Frames, levels.Peak)
	if len(d.endBacklog) > 0 && status == tahti.StatusSleep {
		// a sleeping plugin is never processed again, and the backlog
		// only drains through blocks
		status = tahti.StatusContinue
	}
	d.lastSteady = block.SteadyTime
	d.lastFrames = block.Frames
	d.block = nil
	d.observe(block, levels, sounding, status)
	return status
}

// Capability implements tahti.Plugin, answering for the synth where it
// implements the optional interfaces.
func (d *Driver) Capability(id string) any {
	switch id {
	case tahti.CapTail:
		if d.tailer != nil {
			return d.tailer
		}
	case tahti.CapVoiceInfo:
		return voiceInfoProvider{d.voiceInfo}
	case tahti.CapNoteExpression:
		if d.exprs != nil {
			return d.exprs
		}
	}
	return nil
}

type voiceInfoProvider struct{ info tahti.VoiceInfo }

func (p voiceInfoProvider) VoiceInfo() tahti.VoiceInfo { return p.info }

// Voices exposes the voice table for hosts and tests; it must not be
// touched while Process runs.
func (d *Driver) Voices() *VoiceTracker { return d.voices }

// Params exposes the parameter state; same caveat as Voices.
func (d *Driver) Params() *ParamResolver { return d.params }

// Transport exposes the timeline state; same caveat as Voices.
func (d *Driver) Transport() *TransportTracker { return d.transport }

// PendingEnds returns how many note ends still wait for room in the
// host queue.
func (d *Driver) PendingEnds() int { return len(d.endBacklog) }

// Counters returns the cumulative diagnostics counters.
func (d *Driver) Counters() (droppedEnds, skippedEvents uint64) {
	return d.droppedEnds, d.skippedEvents
}

func (d *Driver) validate(block *tahti.Block) error {
	if block.Frames < 0 {
		return fmt.Errorf("%w: %d", ErrBadFrames, block.Frames)
	}
	if block.Frames > 0 && len(block.Out) < block.Frames {
		return fmt.Errorf("%w: out holds %d of %d frames", ErrShortBuffer, len(block.Out), block.Frames)
	}
	if block.In != nil && len(block.In) < block.Frames {
		return fmt.Errorf("%w: in holds %d of %d frames", ErrShortBuffer, len(block.In), block.Frames)
	}
	if block.SteadyTime >= 0 && d.lastSteady >= 0 &&
		block.SteadyTime < d.lastSteady+int64(d.lastFrames) {
		return fmt.Errorf("%w: %d after %d+%d", ErrSteadyTime,
			block.SteadyTime, d.lastSteady, d.lastFrames)
	}
	return nil
}

// fail reports a protocol violation. The stream is already broken, so
// formatting the alert here costs nothing that matters.
func (d *Driver) fail(block *tahti.Block, err error) tahti.Status {
	if d.broker != nil {
		TrySend(d.broker.ToObserver, MsgToObserver{
			Status:        tahti.StatusError,
			SteadyTime:    block.SteadyTime,
			Frames:        block.Frames,
			EventsIn:      d.eventsIn,
			DroppedEnds:   d.droppedEnds,
			SkippedEvents: d.skippedEvents,
			Data:          Alert{Name: "ProtocolViolation", Message: err.Error(), Priority: AlertError},
		})
	}
	return tahti.StatusError
}

// ApplyEvent implements BlockSink. Events the engine does not
// understand are skipped and counted, never failed on; unknown spaces
// and types are how the protocol stays extensible.
func (d *Driver) ApplyEvent(e *tahti.Event) error {
	d.eventsIn++
	if e.Header.Space != tahti.CoreSpace {
		d.skippedEvents++
		return nil
	}
	switch e.Header.Type {
	case tahti.EventNoteOn:
		d.noteOn(e)
	case tahti.EventNoteOff:
		d.slots = d.voices.Release(e.Note.Port, e.Note.Channel, e.Note.Key, e.Note.Voice, d.slots[:0])
		for _, slot := range d.slots {
			d.synth.Release(slot)
		}
	case tahti.EventNoteChoke:
		d.slots = d.voices.Choke(e.Note.Port, e.Note.Channel, e.Note.Key, e.Note.Voice, d.slots[:0])
		for _, slot := range d.slots {
			d.synth.Choke(slot)
		}
	case tahti.EventNoteExpression:
		d.expression(e)
	case tahti.EventParamValue:
		d.paramChange(e, false)
	case tahti.EventParamMod:
		d.paramChange(e, true)
	case tahti.EventParamGestureBegin, tahti.EventParamGestureEnd:
		// gestures bracket user interactions; there is nothing to apply
	case tahti.EventTransport:
		d.transport.Apply(&e.Transport, int(e.Header.Time))
	case tahti.EventMIDI:
		d.midi(e)
	default:
		// note ends travel from plugin to host, and midi2 and sysex
		// have no mapping into the synth interface
		d.skippedEvents++
	}
	return nil
}

// RenderRange implements BlockSink by mixing the synth into the block's
// output buffer.
func (d *Driver) RenderRange(from, to int) error {
	return d.synth.Render(d.block.Out[from:to])
}

func (d *Driver) noteOn(e *tahti.Event) {
	port, pok := e.Note.Port.Unpack()
	channel, cok := e.Note.Channel.Unpack()
	key, kok := e.Note.Key.Unpack()
	if !pok || !cok || !kok || key < 0 || key > 127 {
		d.skippedEvents++
		return
	}
	note := NoteRef{Port: port, Channel: channel, Key: key, Ref: e.Note.Voice}
	d.startVoice(note, clampUnit(e.Note.Velocity), e.Header.Time)
}

func (d *Driver) startVoice(note NoteRef, velocity float64, time uint32) {
	slot, ended, needEnd := d.voices.NoteOn(note, velocity)
	if slot < 0 {
		return
	}
	// arms the tail even for a voice that starts and finishes within
	// this very block
	d.wasSounding = true
	if needEnd {
		d.pushEnd(ended, time)
	}
	d.params.ClearVoice(slot)
	d.synth.Trigger(slot, byte(note.Key), velocity)
}

func (d *Driver) expression(e *tahti.Event) {
	if d.exprs == nil {
		d.skippedEvents++
		return
	}
	x := &e.Expression
	d.slots = d.voices.Match(x.Port, x.Channel, x.Key, x.Voice, d.slots[:0])
	for _, slot := range d.slots {
		d.exprs.SetVoiceExpression(slot, x.ID, x.Value)
	}
}

// paramChange applies a base value or modulation change. A change with
// every selector open is global; anything narrower lands on the voices
// it matches. An override covers only its own axis, so after a global
// change the overridden voices get their effective values pushed again:
// the global side may still show through the axis they left open.
func (d *Driver) paramChange(e *tahti.Event, mod bool) {
	p := &e.Param
	if !d.params.Registered(p.ID) {
		d.skippedEvents++
		return
	}
	if p.Port.IsAny() && p.Channel.IsAny() && p.Key.IsAny() && p.Voice.Empty() {
		if mod {
			d.params.SetMod(p.ID, p.Value)
		} else {
			d.params.SetValue(p.ID, p.Value)
		}
		effective, _ := d.params.EffectiveGlobal(p.ID)
		d.synth.SetParameter(p.ID, effective)
		for slot := 0; slot < d.voices.Len(); slot++ {
			if d.voices.State(slot) != VoiceFree && d.params.VoiceOverridden(slot, p.ID) {
				value, _ := d.params.Effective(slot, p.ID)
				d.synth.SetVoiceParameter(slot, p.ID, value)
			}
		}
		return
	}
	d.slots = d.voices.Match(p.Port, p.Channel, p.Key, p.Voice, d.slots[:0])
	for _, slot := range d.slots {
		if mod {
			d.params.SetVoiceMod(slot, p.ID, p.Value)
		} else {
			d.params.SetVoiceValue(slot, p.ID, p.Value)
		}
		value, _ := d.params.Effective(slot, p.ID)
		d.synth.SetVoiceParameter(slot, p.ID, value)
	}
}

// midi translates the raw MIDI 1.0 note dialect. Anything else in raw
// MIDI has no mapping into the synth interface and is counted.
func (d *Driver) midi(e *tahti.Event) {
	status := e.MIDI.Data[0] & 0xf0
	channel := int16(e.MIDI.Data[0] & 0x0f)
	key := int16(e.MIDI.Data[1] & 0x7f)
	value := e.MIDI.Data[2] & 0x7f
	switch {
	case status == 0x90 && value > 0:
		note := NoteRef{Port: e.MIDI.Port, Channel: channel, Key: key}
		d.startVoice(note, float64(value)/127, e.Header.Time)
	case status == 0x80 || status == 0x90:
		d.slots = d.voices.Release(tahti.Specific(e.MIDI.Port), tahti.Specific(channel),
			tahti.Specific(key), tahti.VoiceRef{}, d.slots[:0])
		for _, slot := range d.slots {
			d.synth.Release(slot)
		}
	default:
		d.skippedEvents++
	}
}

// drainStaged applies everything the non-realtime side queued since the
// last block. Staged events land at the start of the block, whatever
// time their header claims.
func (d *Driver) drainStaged() {
	if d.broker == nil {
		return
	}
loop:
	for {
		select {
		case msg := <-d.broker.ToDriver:
			switch m := msg.(type) {
			case tahti.Event:
				m.Header.Time = 0
				d.ApplyEvent(&m)
			case PanicMsg:
				d.chokeAll()
			}
		default:
			break loop
		}
	}
}

func (d *Driver) chokeAll() {
	d.slots = d.voices.Choke(tahti.Any(), tahti.Any(), tahti.Any(), tahti.VoiceRef{}, d.slots[:0])
	for _, slot := range d.slots {
		d.synth.Choke(slot)
	}
}

// reapFinished polls the synth for voices that went silent on their own
// and tells the host about the ones it must retire.
func (d *Driver) reapFinished() {
	end := uint32(0)
	if d.block.Frames > 0 {
		end = uint32(d.block.Frames - 1)
	}
	for slot := 0; slot < d.voices.Len(); slot++ {
		if d.voices.State(slot) == VoiceFree || !d.synth.Finished(slot) {
			continue
		}
		if note, needEnd := d.voices.Terminate(slot); needEnd {
			d.pushEnd(note, end)
		}
	}
}

// pushEnd sends a note end to the host, or keeps it for the next block
// when the host queue is full. The backlog is bounded: when even that
// overflows, the oldest end is dropped and counted, never the stream.
func (d *Driver) pushEnd(note NoteRef, time uint32) {
	e := tahti.NewNoteEnd(time, note.Port, note.Channel, note.Key)
	e.Note.Voice = note.Ref
	if d.block.OutEvents != nil && d.block.OutEvents.TryPush(&e) {
		return
	}
	if len(d.endBacklog) == cap(d.endBacklog) {
		copy(d.endBacklog, d.endBacklog[1:])
		d.endBacklog = d.endBacklog[:len(d.endBacklog)-1]
		d.droppedEnds++
	}
	d.endBacklog = append(d.endBacklog, e)
}

// flushEnds retries the note ends the host had no room for. They apply
// at the start of the block; note end times are informational anyway.
func (d *Driver) flushEnds() {
	if len(d.endBacklog) == 0 || d.block.OutEvents == nil {
		return
	}
	kept := 0
	for i := range d.endBacklog {
		d.endBacklog[i].Header.Time = 0
		if !d.block.OutEvents.TryPush(&d.endBacklog[i]) {
			kept = len(d.endBacklog) - i
			copy(d.endBacklog, d.endBacklog[i:])
			break
		}
	}
	d.endBacklog = d.endBacklog[:kept]
}

func (d *Driver) status(sounding, frames int, peak float32) tahti.Status {
	if sounding > 0 {
		d.wasSounding = true
		return tahti.StatusContinue
	}
	if d.wasSounding {
		d.wasSounding = false
		d.tailLeft = 0
		if d.tailer != nil {
			d.tailLeft = d.tailer.TailFrames()
		}
	} else if d.tailLeft > 0 {
		d.tailLeft -= frames
	}
	if d.tailLeft > 0 {
		return tahti.StatusTail
	}
	if peak >= d.quietLevel {
		return tahti.StatusContinueIfNotQuiet
	}
	return tahti.StatusSleep
}

// observe sends the per-block report, a copy of the rendered audio
// riding along in a pooled buffer.
func (d *Driver) observe(block *tahti.Block, levels BlockLevels, sounding int, status tahti.Status) {
	if d.broker == nil {
		return
	}
	msg := MsgToObserver{
		Status:        status,
		SteadyTime:    block.SteadyTime,
		Frames:        block.Frames,
		Peak:          levels.Peak,
		VoicesActive:  sounding,
		EventsIn:      d.eventsIn,
		DroppedEnds:   d.droppedEnds,
		SkippedEvents: d.skippedEvents,
	}
	buf := d.broker.GetAudioBuffer()
	*buf = append(*buf, block.Out[:block.Frames]...)
	msg.Data = buf
	if !TrySend(d.broker.ToObserver, msg) {
		d.broker.PutAudioBuffer(buf)
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
