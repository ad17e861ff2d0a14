package engine

import (
	"github.com/vsariola/tahti"
)

type (
	// TransportTracker keeps the engine's view of the host timeline. It
	// never advances the timeline on its own: the snapshot only changes
	// when the host hands over a new one, either at a block boundary or
	// through a transport event inside the block. A block that brings no
	// update keeps the previous snapshot frozen.
	TransportTracker struct {
		mode          TransportMode
		snapshot      tahti.TransportData
		snapshotFrame int
	}

	TransportMode int
)

const (
	// NoTransport means the host runs the engine free of any timeline;
	// there is no tempo and no song position to speak of.
	NoTransport TransportMode = iota
	// Synced means the engine holds a host timeline snapshot.
	Synced
)

var transportModeNames = [...]string{"no transport", "synced"}

func (m TransportMode) String() string {
	if m < 0 || int(m) >= len(transportModeNames) {
		return "invalid transport mode"
	}
	return transportModeNames[m]
}

func NewTransportTracker() *TransportTracker {
	return &TransportTracker{}
}

// BeginBlock takes the block's transport reference. A nil reference
// means the host is running free, and the tracker forgets everything it
// knew, however recent; stale tempo is worse than no tempo.
func (t *TransportTracker) BeginBlock(data *tahti.TransportData) {
	if data == nil {
		t.Reset()
		return
	}
	t.mode = Synced
	t.snapshot = *data
	t.snapshotFrame = 0
}

// Apply takes a transport event at the given block offset. An event
// arriving while the tracker has no transport puts it in sync; the
// host has started telling us about its timeline, so we listen.
func (t *TransportTracker) Apply(data *tahti.TransportData, frame int) {
	t.mode = Synced
	t.snapshot = *data
	t.snapshotFrame = frame
}

// Mode returns whether the tracker holds a host timeline.
func (t *TransportTracker) Mode() TransportMode { return t.mode }

// Snapshot returns the current timeline snapshot. The second return is
// false while the tracker has no transport.
func (t *TransportTracker) Snapshot() (tahti.TransportData, bool) {
	return t.snapshot, t.mode == Synced
}

// Playing reports whether the host timeline is rolling. Without a
// transport it is false.
func (t *TransportTracker) Playing() bool {
	return t.mode == Synced && t.snapshot.Playing()
}

// TempoAt returns the tempo at a block offset, following the
// per-sample tempo ramp from the frame the snapshot took effect. The
// second return is false when no tempo is known.
func (t *TransportTracker) TempoAt(frame int) (float64, bool) {
	if t.mode != Synced || !t.snapshot.HasTempo() {
		return 0, false
	}
	return t.snapshot.TempoAt(frame - t.snapshotFrame), true
}

// Reset drops the timeline entirely.
func (t *TransportTracker) Reset() {
	t.mode = NoTransport
	t.snapshot = tahti.TransportData{}
	t.snapshotFrame = 0
}
