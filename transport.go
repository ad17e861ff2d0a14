package tahti

// BeatTime is a position or duration on the musical timeline, in
// quarter notes.
type BeatTime float64

// SecTime is a position or duration on the wall-clock timeline, in
// seconds.
type SecTime float64

// TransportFlags state which fields of a TransportData are valid and
// what the host timeline is currently doing. A host may run without a
// tempo, without timelines, or both.
type TransportFlags uint32

const (
	TransportHasTempo TransportFlags = 1 << iota
	TransportHasBeatsTimeline
	TransportHasSecondsTimeline
	TransportHasTimeSignature
	TransportIsPlaying
	TransportIsRecording
	TransportIsLoopActive
	TransportIsWithinPreRoll
)

// TransportData is a snapshot of the host timeline. One rides on every
// block descriptor (nil there means the host has no transport at all)
// and further snapshots may arrive as events inside a block, taking
// effect at their frame offset. Fields without their flag set carry no
// information.
type TransportData struct {
	Flags TransportFlags

	SongPosBeats   BeatTime
	SongPosSeconds SecTime

	Tempo    float64 // in bpm
	TempoInc float64 // tempo change per sample until the next snapshot

	LoopStartBeats   BeatTime
	LoopEndBeats     BeatTime
	LoopStartSeconds SecTime
	LoopEndSeconds   SecTime

	BarStart  BeatTime // start position of the current bar
	BarNumber int32    // counts from 0, negative during pre-roll

	TimeSigNumerator   uint16
	TimeSigDenominator uint16
}

// Playing reports whether the timeline is rolling.
func (t *TransportData) Playing() bool {
	return t.Flags&TransportIsPlaying != 0
}

// HasTempo reports whether Tempo and TempoInc are valid.
func (t *TransportData) HasTempo() bool {
	return t.Flags&TransportHasTempo != 0
}

// TempoAt returns the tempo at a frame offset relative to the moment
// this snapshot took effect, following the per-sample tempo ramp. The
// snapshot itself stays unchanged.
func (t *TransportData) TempoAt(offset int) float64 {
	return t.Tempo + t.TempoInc*float64(offset)
}
