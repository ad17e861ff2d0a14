package session

import (
	"fmt"
	"sort"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/engine"
	"github.com/vsariola/tahti/host"
)

type (
	// Log is what a session run left behind. Audio is the whole
	// rendered output, block after block.
	Log struct {
		Script  *Script
		Blocks  []BlockLog
		Audio   tahti.AudioBuffer
		Dropped uint64
		Errors  uint64
		Skipped int // scripted events the runner could not translate
	}

	// BlockLog records one processed block.
	BlockLog struct {
		Index   int
		Status  tahti.Status
		Sent    int
		Replies []string
		Peak    float32
		Pending int
		Held    int
	}
)

// Run drives the plugin through the script and returns the log. The
// plugin is processed for every block up to the script's count, except
// that a plugin asking to sleep after the last scripted event is left
// alone, the way a real host would leave it.
func Run(script *Script, plugin tahti.Plugin) (*Log, error) {
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("Run failed: %v", err)
	}
	h := host.New(plugin,
		host.WithSampleRate(script.SampleRate),
		host.WithBlockSize(script.BlockSize),
	)
	events := make([]ScriptEvent, len(script.Events))
	copy(events, script.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Block < events[j].Block
	})
	log := &Log{
		Script: script,
		Blocks: make([]BlockLog, 0, script.Blocks),
		Audio:  make(tahti.AudioBuffer, 0, script.Blocks*script.BlockSize),
	}
	detector := engine.NewDetector(script.BlockSize)
	next := 0
	for block := 0; block < script.Blocks; block++ {
		sent := 0
		for next < len(events) && events[next].Block == block {
			if stage(h, &events[next]) {
				sent++
			} else {
				log.Skipped++
			}
			next++
		}
		status := h.Process()
		entry := BlockLog{
			Index:   block,
			Status:  status,
			Sent:    sent,
			Peak:    detector.Analyze(h.Out()).Peak,
			Pending: h.PendingNotes(),
			Held:    h.HeldNotes(),
		}
		replies := h.Replies()
		for i := 0; i < replies.Len(); i++ {
			entry.Replies = append(entry.Replies, replies.Get(i).String())
		}
		log.Blocks = append(log.Blocks, entry)
		log.Audio = append(log.Audio, h.Out()...)
		if status == tahti.StatusSleep && next == len(events) {
			break
		}
	}
	log.Dropped = h.Dropped()
	log.Errors = h.Errors()
	return log, nil
}

// stage translates one scripted event into host calls, reporting
// whether it could.
func stage(h *host.Host, e *ScriptEvent) bool {
	port := e.Port.Target(tahti.Specific(0))
	channel := e.Channel.Target(tahti.Specific(0))
	switch e.Type {
	case TypeNoteOn:
		key := e.Key.Target(tahti.Specific(60))
		p, pok := port.Unpack()
		c, cok := channel.Unpack()
		k, kok := key.Unpack()
		if !pok || !cok || !kok {
			return false
		}
		vel := 1.0
		if e.Velocity != nil {
			vel = *e.Velocity
		}
		h.NoteOn(e.Time, p, c, k, vel)
	case TypeNoteOff:
		h.NoteOff(e.Time, port, channel, e.Key.Target(tahti.Any()))
	case TypeChoke:
		h.Choke(e.Time, port, channel, e.Key.Target(tahti.Any()))
	case TypeParam:
		h.Stage(tahti.NewVoiceParamValue(e.Time, tahti.ParamID(e.Param),
			e.Port.Target(tahti.Any()), e.Channel.Target(tahti.Any()),
			e.Key.Target(tahti.Any()), e.Value))
	case TypeMod:
		h.Stage(tahti.NewVoiceParamMod(e.Time, tahti.ParamID(e.Param),
			e.Port.Target(tahti.Any()), e.Channel.Target(tahti.Any()),
			e.Key.Target(tahti.Any()), e.Value))
	case TypeGestureBegin:
		h.Stage(tahti.NewParamGesture(e.Time, tahti.ParamID(e.Param), true))
	case TypeGestureEnd:
		h.Stage(tahti.NewParamGesture(e.Time, tahti.ParamID(e.Param), false))
	case TypeMIDI:
		if len(e.Data) < 3 {
			return false
		}
		p, ok := port.Unpack()
		if !ok {
			return false
		}
		h.Stage(tahti.NewMIDI(e.Time, p, [3]byte{e.Data[0], e.Data[1], e.Data[2]}))
	case TypePlay:
		h.Play()
	case TypeStop:
		h.Stop()
	case TypeTempo:
		h.SetTempo(e.Tempo)
	case TypeSeek:
		h.Seek(tahti.BeatTime(e.Beats))
	case TypeLoop:
		h.SetLoop(tahti.BeatTime(e.Beats), tahti.BeatTime(e.End))
	case TypeFreeRun:
		h.FreeRun()
	default:
		return false
	}
	return true
}
