// Package host implements the block production side of the event
// protocol: it owns the event queues and the output buffer, stamps
// steady time, authors transport snapshots, stages events for the next
// block and keeps a voice mirror of every note it has sent until the
// plugin reports the note fully ended.
package host

import (
	"sort"

	"github.com/vsariola/tahti"
)

type (
	// Host drives a single Plugin. It is not safe for concurrent use;
	// the audio callback owns it the same way it owns the plugin.
	Host struct {
		plugin    tahti.Plugin
		tailer    tahti.Tailer
		voiceInfo tahti.VoiceInfo

		sampleRate int
		blockSize  int
		queueCap   int
		sysexCap   int
		noClock    bool

		in     *tahti.Queue
		out    *tahti.Queue
		buffer tahti.AudioBuffer
		block  tahti.Block
		staged []tahti.Event

		notes   []noteRecord
		nextRef int32

		steady       int64
		transport    tahti.TransportData
		hasTransport bool

		dropped uint64
		errors  uint64
	}

	// noteRecord is one note the host has sent and not yet seen the end
	// of. Released notes stay on record; the plugin still owns them
	// until it replies with a note end.
	noteRecord struct {
		port, channel, key int16
		ref                tahti.VoiceRef
		released           bool
	}

	Option func(*Host)
)

func WithSampleRate(rate int) Option {
	return func(h *Host) {
		if rate > 0 {
			h.sampleRate = rate
		}
	}
}

func WithBlockSize(frames int) Option {
	return func(h *Host) {
		if frames > 0 {
			h.blockSize = frames
		}
	}
}

// WithQueueCapacity sizes the reusable event queues, in events and in
// bytes of sysex arena.
func WithQueueCapacity(events, sysexBytes int) Option {
	return func(h *Host) {
		if events > 0 {
			h.queueCap = events
		}
		if sysexBytes >= 0 {
			h.sysexCap = sysexBytes
		}
	}
}

// WithoutSteadyClock makes the host stamp every block with
// SteadyTimeUnknown, for streams that have no stable sample clock.
func WithoutSteadyClock() Option {
	return func(h *Host) { h.noClock = true }
}

// New wraps a plugin. Capabilities are queried once, here, never while
// processing.
func New(plugin tahti.Plugin, opts ...Option) *Host {
	h := &Host{
		plugin:     plugin,
		sampleRate: 44100,
		blockSize:  512,
		queueCap:   256,
		sysexCap:   4096,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.in = tahti.NewQueue(h.queueCap, h.sysexCap)
	h.out = tahti.NewQueue(h.queueCap, h.sysexCap)
	h.buffer = make(tahti.AudioBuffer, h.blockSize)
	if t, ok := plugin.Capability(tahti.CapTail).(tahti.Tailer); ok {
		h.tailer = t
	}
	if v, ok := plugin.Capability(tahti.CapVoiceInfo).(tahti.VoiceInfoProvider); ok {
		h.voiceInfo = v.VoiceInfo()
	}
	return h
}

// Process runs one block through the plugin: staged events go in, the
// plugin renders, and its replies are consumed into the voice mirror.
// The rendered audio stays readable through Out until the next call.
func (h *Host) Process() tahti.Status {
	h.in.Reset()
	h.out.Reset()
	sort.SliceStable(h.staged, func(i, j int) bool {
		return h.staged[i].Header.Time < h.staged[j].Header.Time
	})
	limit := uint32(h.blockSize - 1)
	for i := range h.staged {
		e := h.staged[i]
		if e.Header.Time > limit {
			e.Header.Time = limit
		}
		if !h.in.TryPush(&e) {
			h.dropped++
		}
	}
	h.staged = h.staged[:0]
	for i := range h.buffer {
		h.buffer[i] = [2]float32{}
	}
	h.block = tahti.Block{
		SteadyTime: h.steadyTime(),
		Frames:     h.blockSize,
		Out:        h.buffer,
		InEvents:   h.in,
		OutEvents:  h.out,
	}
	if h.hasTransport {
		snapshot := h.transport
		h.block.Transport = &snapshot
	}
	status := h.plugin.Process(&h.block)
	if status == tahti.StatusError {
		h.errors++
	}
	h.consumeReplies()
	if !h.noClock {
		h.steady += int64(h.blockSize)
	}
	h.advanceTransport(h.blockSize)
	return status
}

// NoteOn stages a note for the next block and returns the reference the
// host tracks the voice by until a note end comes back.
func (h *Host) NoteOn(time uint32, port, channel, key int16, velocity float64) tahti.VoiceRef {
	h.nextRef++
	ref := tahti.NewVoiceRef(h.nextRef)
	e := tahti.NewNoteOn(time, port, channel, key, velocity)
	e.Note.Voice = ref
	h.staged = append(h.staged, e)
	h.notes = append(h.notes, noteRecord{port: port, channel: channel, key: key, ref: ref})
	return ref
}

// NoteOff stages a release. The matching records stay in the mirror:
// the plugin owns released voices until it reports their end.
func (h *Host) NoteOff(time uint32, port, channel, key tahti.Target) {
	h.staged = append(h.staged, tahti.NewNoteOff(time, port, channel, key, 0))
	for i := range h.notes {
		n := &h.notes[i]
		if port.Matches(n.port) && channel.Matches(n.channel) && key.Matches(n.key) {
			n.released = true
		}
	}
}

// Choke stages an immediate silencing. Choked voices send no note end,
// so their records are dropped right here.
func (h *Host) Choke(time uint32, port, channel, key tahti.Target) {
	h.staged = append(h.staged, tahti.NewNoteChoke(time, port, channel, key))
	kept := h.notes[:0]
	for _, n := range h.notes {
		if port.Matches(n.port) && channel.Matches(n.channel) && key.Matches(n.key) {
			continue
		}
		kept = append(kept, n)
	}
	h.notes = kept
}

// Stage queues an arbitrary event for the next block. Events timed past
// the block are delivered at its last frame. Note events staged this
// way bypass the voice mirror; use NoteOn, NoteOff and Choke to keep
// it.
func (h *Host) Stage(e tahti.Event) {
	h.staged = append(h.staged, e)
}

// Play starts the timeline rolling from wherever it stopped.
func (h *Host) Play() {
	h.ensureTransport()
	h.transport.Flags |= tahti.TransportIsPlaying
}

// Stop pauses the timeline, keeping the song position.
func (h *Host) Stop() {
	h.ensureTransport()
	h.transport.Flags &^= tahti.TransportIsPlaying
}

// SetTempo sets a constant tempo in beats per minute.
func (h *Host) SetTempo(bpm float64) {
	h.ensureTransport()
	h.transport.Flags |= tahti.TransportHasTempo
	h.transport.Tempo = bpm
	h.transport.TempoInc = 0
}

func (h *Host) SetTimeSignature(numerator, denominator uint16) {
	h.ensureTransport()
	h.transport.Flags |= tahti.TransportHasTimeSignature
	h.transport.TimeSigNumerator = numerator
	h.transport.TimeSigDenominator = denominator
}

// SetLoop makes the beats timeline wrap between start and end while
// playing.
func (h *Host) SetLoop(start, end tahti.BeatTime) {
	h.ensureTransport()
	h.transport.Flags |= tahti.TransportIsLoopActive
	h.transport.LoopStartBeats = start
	h.transport.LoopEndBeats = end
}

func (h *Host) ClearLoop() {
	h.ensureTransport()
	h.transport.Flags &^= tahti.TransportIsLoopActive
}

// Seek moves the song position to the given beat.
func (h *Host) Seek(beats tahti.BeatTime) {
	h.ensureTransport()
	h.transport.SongPosBeats = beats
	if h.transport.HasTempo() && h.transport.Tempo > 0 {
		h.transport.SongPosSeconds = tahti.SecTime(60 * float64(beats) / h.transport.Tempo)
	}
}

// FreeRun drops the transport: the plugin sees a nil snapshot and
// forgets any timeline it kept.
func (h *Host) FreeRun() {
	h.hasTransport = false
	h.transport = tahti.TransportData{}
}

// Out is the audio of the last processed block.
func (h *Host) Out() tahti.AudioBuffer { return h.buffer }

// Replies are the events the plugin pushed during the last block,
// readable until the next Process.
func (h *Host) Replies() tahti.InEvents { return h.out }

func (h *Host) SteadyTime() int64 { return h.steadyTime() }

func (h *Host) BlockSize() int { return h.blockSize }

func (h *Host) SampleRate() int { return h.sampleRate }

// PendingNotes counts the voices the host still considers alive,
// including released ones waiting for their note end.
func (h *Host) PendingNotes() int { return len(h.notes) }

// HeldNotes counts the voices that have not been released yet.
func (h *Host) HeldNotes() int {
	count := 0
	for _, n := range h.notes {
		if !n.released {
			count++
		}
	}
	return count
}

// Dropped counts staged events that did not fit the input queue.
func (h *Host) Dropped() uint64 { return h.dropped }

// Errors counts blocks the plugin rejected as protocol violations.
func (h *Host) Errors() uint64 { return h.errors }

// Tail asks the plugin how many frames it keeps ringing after all
// voices end, or 0 when the plugin does not say.
func (h *Host) Tail() int {
	if h.tailer == nil {
		return 0
	}
	return h.tailer.TailFrames()
}

// VoiceInfo is the plugin's voice configuration as reported at load
// time. A Count of 1 lets a host skip per-voice modulation entirely.
func (h *Host) VoiceInfo() tahti.VoiceInfo { return h.voiceInfo }

func (h *Host) steadyTime() int64 {
	if h.noClock {
		return tahti.SteadyTimeUnknown
	}
	return h.steady
}

func (h *Host) consumeReplies() {
	for i := 0; i < h.out.Len(); i++ {
		e := h.out.Get(i)
		if e.Header.Type == tahti.EventNoteEnd {
			h.retireNote(e)
		}
	}
}

// retireNote drops the oldest mirror record matching a note end.
func (h *Host) retireNote(e *tahti.Event) {
	for i := range h.notes {
		n := &h.notes[i]
		if !e.Note.Port.Matches(n.port) || !e.Note.Channel.Matches(n.channel) || !e.Note.Key.Matches(n.key) {
			continue
		}
		if !e.Note.Voice.Matches(n.ref) {
			continue
		}
		h.notes = append(h.notes[:i], h.notes[i+1:]...)
		return
	}
}

func (h *Host) ensureTransport() {
	if !h.hasTransport {
		h.hasTransport = true
		h.transport.Flags = tahti.TransportHasBeatsTimeline | tahti.TransportHasSecondsTimeline
	}
}

func (h *Host) advanceTransport(frames int) {
	if !h.hasTransport || !h.transport.Playing() {
		return
	}
	dt := float64(frames) / float64(h.sampleRate)
	h.transport.SongPosSeconds += tahti.SecTime(dt)
	if h.transport.HasTempo() {
		h.transport.SongPosBeats += tahti.BeatTime(h.transport.Tempo * dt / 60)
		if h.transport.Flags&tahti.TransportIsLoopActive != 0 {
			length := h.transport.LoopEndBeats - h.transport.LoopStartBeats
			for length > 0 && h.transport.SongPosBeats >= h.transport.LoopEndBeats {
				h.transport.SongPosBeats -= length
			}
		}
	}
	if h.transport.Flags&tahti.TransportHasTimeSignature != 0 && h.transport.TimeSigDenominator > 0 {
		barLen := tahti.BeatTime(4 * float64(h.transport.TimeSigNumerator) / float64(h.transport.TimeSigDenominator))
		if barLen > 0 {
			bar := int32(h.transport.SongPosBeats / barLen)
			h.transport.BarNumber = bar
			h.transport.BarStart = barLen * tahti.BeatTime(bar)
		}
	}
}
