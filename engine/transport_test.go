package engine_test

import (
	"testing"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/engine"
)

func TestTransportSync(t *testing.T) {
	tr := engine.NewTransportTracker()
	if tr.Mode() != engine.NoTransport {
		t.Fatalf("fresh tracker should have no transport")
	}
	tr.BeginBlock(&tahti.TransportData{
		Flags: tahti.TransportHasTempo | tahti.TransportIsPlaying,
		Tempo: 120,
	})
	if tr.Mode() != engine.Synced || !tr.Playing() {
		t.Errorf("tracker should be synced and playing")
	}
	if tempo, ok := tr.TempoAt(0); !ok || tempo != 120 {
		t.Errorf("tempo: got %v, %v, expected 120, true", tempo, ok)
	}
}

func TestTransportFrozenCarryForward(t *testing.T) {
	tr := engine.NewTransportTracker()
	tr.BeginBlock(&tahti.TransportData{
		Flags:        tahti.TransportHasTempo | tahti.TransportHasBeatsTimeline,
		Tempo:        100,
		SongPosBeats: 16,
	})
	// no transport event inside the block: the snapshot must not move
	snap, ok := tr.Snapshot()
	if !ok || snap.SongPosBeats != 16 {
		t.Errorf("snapshot should stay frozen: got %v, %v", snap.SongPosBeats, ok)
	}
	tr.Apply(&tahti.TransportData{
		Flags:        tahti.TransportHasTempo | tahti.TransportHasBeatsTimeline,
		Tempo:        100,
		SongPosBeats: 24,
	}, 32)
	if snap, _ = tr.Snapshot(); snap.SongPosBeats != 24 {
		t.Errorf("transport event should replace the snapshot: got %v", snap.SongPosBeats)
	}
}

func TestTransportHardReset(t *testing.T) {
	tr := engine.NewTransportTracker()
	tr.BeginBlock(&tahti.TransportData{Flags: tahti.TransportHasTempo, Tempo: 120})
	tr.BeginBlock(nil)
	if tr.Mode() != engine.NoTransport {
		t.Errorf("nil transport should reset the tracker, mode %v", tr.Mode())
	}
	if _, ok := tr.Snapshot(); ok {
		t.Errorf("no snapshot should survive a reset")
	}
	if _, ok := tr.TempoAt(0); ok {
		t.Errorf("no tempo should survive a reset")
	}
	// an event while free-running puts the tracker back in sync
	tr.Apply(&tahti.TransportData{Flags: tahti.TransportHasTempo, Tempo: 90}, 10)
	if tempo, ok := tr.TempoAt(10); !ok || tempo != 90 {
		t.Errorf("tempo after resync: got %v, %v, expected 90, true", tempo, ok)
	}
}

func TestTransportTempoRamp(t *testing.T) {
	tr := engine.NewTransportTracker()
	tr.Apply(&tahti.TransportData{
		Flags:    tahti.TransportHasTempo,
		Tempo:    120,
		TempoInc: 0.5,
	}, 16)
	if tempo, _ := tr.TempoAt(16); tempo != 120 {
		t.Errorf("tempo at the snapshot frame: got %v, expected 120", tempo)
	}
	if tempo, _ := tr.TempoAt(26); tempo != 125 {
		t.Errorf("tempo 10 frames in: got %v, expected 125", tempo)
	}
}
