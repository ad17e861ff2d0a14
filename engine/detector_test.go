package engine_test

import (
	"math"
	"testing"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/engine"
)

func TestDetectorLevels(t *testing.T) {
	d := engine.NewDetector(16)
	buffer := tahti.AudioBuffer{{0.5, -0.5}, {0.25, 0.25}}
	levels := d.Analyze(buffer)
	if levels.Peak != 0.5 {
		t.Errorf("peak: got %v, expected 0.5", levels.Peak)
	}
	expectedRMS := float32(math.Sqrt((0.25 + 0.25 + 0.0625 + 0.0625) / 4))
	if diff := levels.RMS - expectedRMS; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("rms: got %v, expected %v", levels.RMS, expectedRMS)
	}
}

func TestDetectorEmptyBuffer(t *testing.T) {
	d := engine.NewDetector(16)
	levels := d.Analyze(nil)
	if levels.Peak != 0 || levels.RMS != 0 {
		t.Errorf("empty buffer should measure zero, got %+v", levels)
	}
}

func TestDetectorGrowsPastDeclaredMax(t *testing.T) {
	d := engine.NewDetector(2)
	buffer := make(tahti.AudioBuffer, 64)
	buffer[63][0] = -0.75
	levels := d.Analyze(buffer)
	if levels.Peak != 0.75 {
		t.Errorf("peak: got %v, expected 0.75", levels.Peak)
	}
}
