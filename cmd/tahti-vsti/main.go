//go:build plugin

package main

import (
	"sort"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/engine"
	"github.com/vsariola/tahti/synth"
	"pipelined.dev/audio/vst2"
)

const sampleRate = 44100

// VSTIProcessContext carries the state one instance needs between the
// DAW's event and audio callbacks: events arrive first, audio is asked
// for right after, always on the same thread.
type VSTIProcessContext struct {
	events []vst2.MIDIEvent
	host   vst2.Host
	in     *tahti.Queue
	out    *tahti.Queue
	steady int64
}

// Transport translates the DAW's time info into a transport snapshot,
// or nil when the DAW does not answer.
func (c *VSTIProcessContext) Transport() *tahti.TransportData {
	timeInfo := c.host.GetTimeInfo(vst2.TempoValid | vst2.PpqPosValid | vst2.TimeSigValid | vst2.BarsValid | vst2.CyclePosValid)
	if timeInfo == nil {
		return nil
	}
	var t tahti.TransportData
	if timeInfo.SampleRate > 0 {
		t.Flags |= tahti.TransportHasSecondsTimeline
		t.SongPosSeconds = tahti.SecTime(timeInfo.SamplePos / timeInfo.SampleRate)
	}
	if timeInfo.Flags&vst2.TempoValid != 0 && timeInfo.Tempo > 0 {
		t.Flags |= tahti.TransportHasTempo
		t.Tempo = timeInfo.Tempo
	}
	if timeInfo.Flags&vst2.PpqPosValid != 0 {
		t.Flags |= tahti.TransportHasBeatsTimeline
		t.SongPosBeats = tahti.BeatTime(timeInfo.PpqPos)
	}
	if timeInfo.Flags&vst2.TimeSigValid != 0 {
		t.Flags |= tahti.TransportHasTimeSignature
		t.TimeSigNumerator = uint16(timeInfo.TimeSigNumerator)
		t.TimeSigDenominator = uint16(timeInfo.TimeSigDenominator)
	}
	if timeInfo.Flags&vst2.BarsValid != 0 {
		t.BarStart = tahti.BeatTime(timeInfo.BarStartPos)
	}
	if timeInfo.Flags&vst2.CyclePosValid != 0 {
		t.LoopStartBeats = tahti.BeatTime(timeInfo.CycleStartPos)
		t.LoopEndBeats = tahti.BeatTime(timeInfo.CycleEndPos)
	}
	if timeInfo.Flags&vst2.TransportPlaying != 0 {
		t.Flags |= tahti.TransportIsPlaying
	}
	if timeInfo.Flags&vst2.TransportRecording != 0 {
		t.Flags |= tahti.TransportIsRecording
	}
	if timeInfo.Flags&vst2.TransportCycleActive != 0 {
		t.Flags |= tahti.TransportIsLoopActive
	}
	return &t
}

// FillEvents converts the buffered MIDI events of this cycle into the
// input queue, sorted by frame as the event protocol requires.
func (c *VSTIProcessContext) FillEvents(frames int) {
	c.in.Reset()
	sort.SliceStable(c.events, func(i, j int) bool {
		return c.events[i].DeltaFrames < c.events[j].DeltaFrames
	})
	limit := uint32(0)
	if frames > 0 {
		limit = uint32(frames - 1)
	}
	for _, ev := range c.events {
		time := uint32(0)
		if ev.DeltaFrames > 0 {
			time = uint32(ev.DeltaFrames)
		}
		if time > limit {
			time = limit
		}
		channel := int16(ev.Data[0] & 0x0f)
		key := int16(ev.Data[1] & 0x7f)
		velocity := ev.Data[2] & 0x7f
		var e tahti.Event
		switch {
		case ev.Data[0]&0xf0 == 0x90 && velocity > 0:
			e = tahti.NewNoteOn(time, 0, channel, key, float64(velocity)/127)
		case ev.Data[0]&0xf0 == 0x80 || ev.Data[0]&0xf0 == 0x90:
			e = tahti.NewNoteOff(time, tahti.Specific(0), tahti.Specific(channel), tahti.Specific(key), float64(velocity)/127)
		default:
			// everything else passes through raw; the driver maps what
			// it can and counts the rest
			e = tahti.NewMIDI(time, 0, [3]byte{ev.Data[0], ev.Data[1], ev.Data[2]})
		}
		c.in.TryPush(&e)
	}
	c.events = c.events[:0] // reset buffer, but keep the allocated memory
}

func init() {
	var (
		version = int32(100)
	)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		poly, err := synth.NewPoly(synth.Default(), sampleRate)
		if err != nil {
			panic(err)
		}
		driver := engine.NewDriver(poly)
		context := VSTIProcessContext{
			host: h,
			in:   tahti.NewQueue(1024, 0),
			out:  tahti.NewQueue(1024, 0),
		}
		buf := make(tahti.AudioBuffer, 1024)
		return vst2.Plugin{
				UniqueID:       [4]byte{'T', 'h', 't', 'i'},
				Version:        version,
				InputChannels:  0,
				OutputChannels: 2,
				Name:           "Tahti",
				Vendor:         "vsariola/tahti",
				Category:       vst2.PluginCategorySynth,
				Flags:          vst2.PluginIsSynth,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					left := out.Channel(0)
					right := out.Channel(1)
					if len(buf) < out.Frames {
						buf = append(buf, make(tahti.AudioBuffer, out.Frames-len(buf))...)
					}
					buf = buf[:out.Frames]
					context.FillEvents(out.Frames)
					context.out.Reset()
					block := tahti.Block{
						SteadyTime: context.steady,
						Frames:     out.Frames,
						Transport:  context.Transport(),
						Out:        buf,
						InEvents:   context.in,
						OutEvents:  context.out,
					}
					if driver.Process(&block) == tahti.StatusError {
						buf.Clear()
					}
					context.steady += int64(out.Frames)
					// note ends in context.out are dropped: vst2 has no
					// host-facing voice protocol to deliver them over
					for i := 0; i < out.Frames; i++ {
						left[i], right[i] = buf[i][0], buf[i][1]
					}
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent, vst2.PluginCanReceiveTimeInfo:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						a := ev.Event(i)
						switch v := a.(type) {
						case *vst2.MIDIEvent:
							context.events = append(context.events, *v)
						}
					}
				},
			}

	}
}

func main() {}
