// Package gomidi feeds live RTMIDI input into a host. Incoming messages
// are timestamped on the MIDI thread, buffered through a fixed channel
// and drained at block boundaries into frame-stamped events.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/host"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	RTMIDIContext struct {
		driver             *rtmididrv.Driver
		currentIn          drivers.In
		inputDevices       []RTMIDIDevice
		devicesInitialized bool
		sampleRate         int
		events             chan timestampedMsg
		eventsBuf          []timestampedMsg
		startFrame         int
		startFrameSet      bool
		ccParams           map[uint8]ccMapping
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}

	timestampedMsg struct {
		frame int
		msg   midi.Message
	}

	ccMapping struct {
		id       tahti.ParamID
		min, max float64
	}
)

// NewContext opens the RTMIDI driver. A machine without one is not an
// error; the context just never yields input devices.
func NewContext(sampleRate int) *RTMIDIContext {
	m := RTMIDIContext{
		sampleRate: sampleRate,
		events:     make(chan timestampedMsg, 1024),
		ccParams:   make(map[uint8]ccMapping),
	}
	m.driver, _ = rtmididrv.New()
	return &m
}

// MapCC routes a controller to a parameter; controller values 0..127
// spread linearly over min..max. Unmapped controllers pass through as
// raw MIDI events.
func (c *RTMIDIContext) MapCC(controller uint8, id tahti.ParamID, min, max float64) {
	c.ccParams[controller] = ccMapping{id: id, min: min, max: max}
}

func (c *RTMIDIContext) InputDevices(yield func(RTMIDIDevice) bool) {
	if c.devicesInitialized {
		for _, device := range c.inputDevices {
			if !yield(device) {
				break
			}
		}
		return
	}
	if c.driver == nil {
		return
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return
	}
	for i := 0; i < len(ins); i++ {
		device := RTMIDIDevice{context: c, in: ins[i]}
		c.inputDevices = append(c.inputDevices, device)
		if !yield(device) {
			break
		}
	}
	c.devicesInitialized = true
}

// TryToOpenBy opens the first input whose name starts with namePrefix,
// or just the first input when takeFirst is set.
func (c *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) {
	if namePrefix == "" && !takeFirst {
		return
	}
	for input := range c.InputDevices {
		if takeFirst || strings.HasPrefix(input.String(), namePrefix) {
			input.Open()
			return
		}
	}
}

// Open an input device, closing the currently open one if necessary.
func (m RTMIDIDevice) Open() error {
	if m.context.currentIn == m.in {
		return nil
	}
	if m.context.driver == nil {
		return errors.New("no driver available")
	}
	if m.context.HasDeviceOpen() {
		m.context.currentIn.Close()
	}
	m.context.currentIn = m.in
	if err := m.in.Open(); err != nil {
		m.context.currentIn = nil
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	if _, err := midi.ListenTo(m.in, m.context.HandleMessage); err != nil {
		m.in.Close()
		m.context.currentIn = nil
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	return nil
}

func (m RTMIDIDevice) String() string { return m.in.String() }

func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.driver.Close()
}

// HandleMessage runs on the MIDI thread. When the channel is full the
// message is dropped rather than blocking the thread.
func (c *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	frame := int(int64(timestampms) * int64(c.sampleRate) / 1000)
	select {
	case c.events <- timestampedMsg{frame: frame, msg: msg}:
	default:
	}
}

// Drain stages every buffered message that falls inside the next block
// of the given length onto the host, then advances the block window.
// Message timestamps and the audio clock run off different crystals;
// the window start drifts slowly towards the observed timestamps,
// never jumping.
func (c *RTMIDIContext) Drain(h *host.Host, frames int) {
loop:
	for {
		select {
		case m := <-c.events:
			if !c.startFrameSet {
				c.startFrame = m.frame
				c.startFrameSet = true
			}
			c.eventsBuf = append(c.eventsBuf, m)
		default:
			break loop
		}
	}
	kept := c.eventsBuf[:0]
	late := 0
	emitted := false
	for _, m := range c.eventsBuf {
		f := m.frame - c.startFrame
		if f >= frames {
			kept = append(kept, m)
			continue
		}
		if f < 0 {
			if f < late {
				late = f
			}
			f = 0
		}
		c.emit(h, uint32(f), m.msg)
		emitted = true
	}
	c.eventsBuf = kept
	if late < 0 {
		// messages arrived before the window: we are consuming late, so
		// pull the window back a fifth of the gap
		c.startFrame += late / 5
	}
	c.startFrame += frames
	if !emitted && len(c.eventsBuf) > 0 {
		// nothing consumed and something pending: drift towards the
		// pending message so it plays near the time it was received
		delta := c.startFrame - c.eventsBuf[0].frame
		c.startFrame -= delta / 5
	}
}

func (c *RTMIDIContext) emit(h *host.Host, time uint32, msg midi.Message) {
	var channel, key, velocity, controller, value uint8
	var bendRel int16
	var bendAbs uint16
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if velocity == 0 {
			// a zero velocity note on is a release
			h.NoteOff(time, tahti.Specific(0), tahti.Specific(int16(channel)), tahti.Specific(int16(key)))
			return
		}
		h.NoteOn(time, 0, int16(channel), int16(key), float64(velocity)/127)
	case msg.GetNoteOff(&channel, &key, &velocity):
		h.NoteOff(time, tahti.Specific(0), tahti.Specific(int16(channel)), tahti.Specific(int16(key)))
	case msg.GetControlChange(&channel, &controller, &value):
		mapping, ok := c.ccParams[controller]
		if !ok {
			h.Stage(rawEvent(time, msg))
			return
		}
		scaled := mapping.min + (mapping.max-mapping.min)*float64(value)/127
		h.Stage(tahti.NewParamValue(time, mapping.id, scaled))
	case msg.GetPitchBend(&channel, &bendRel, &bendAbs):
		semitones := 2 * float64(bendRel) / 8192
		h.Stage(tahti.NewNoteExpression(time, tahti.ExpressionTuning,
			tahti.Any(), tahti.Specific(int16(channel)), tahti.Any(), semitones))
	default:
		h.Stage(rawEvent(time, msg))
	}
}

func rawEvent(time uint32, msg midi.Message) tahti.Event {
	if len(msg) > 3 {
		return tahti.Event{
			Header: tahti.EventHeader{Time: time, Type: tahti.EventMIDISysex},
			MIDI:   tahti.MIDIData{Sysex: msg},
		}
	}
	var data [3]byte
	copy(data[:], msg)
	return tahti.NewMIDI(time, 0, data)
}
