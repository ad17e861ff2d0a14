package engine

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/tahti"
)

type (
	// Detector measures the levels of rendered audio, used both for the
	// observer feed and for telling a quiet tail from a sounding one.
	// Scratch buffers are sized once, so measuring does not allocate
	// unless a block exceeds the declared maximum.
	Detector struct {
		flat   []float32
		square []float32
	}

	// BlockLevels are the measurements of one rendered block.
	BlockLevels struct {
		Peak float32
		RMS  float32
	}
)

func NewDetector(maxFrames int) *Detector {
	if maxFrames < 1 {
		maxFrames = 1
	}
	return &Detector{
		flat:   make([]float32, 2*maxFrames),
		square: make([]float32, 2*maxFrames),
	}
}

// Analyze measures a rendered buffer.
func (d *Detector) Analyze(buffer tahti.AudioBuffer) BlockLevels {
	n := 2 * len(buffer)
	if n == 0 {
		return BlockLevels{}
	}
	if cap(d.flat) < n {
		d.flat = make([]float32, n)
		d.square = make([]float32, n)
	}
	flat, square := d.flat[:n], d.square[:n]
	for i, frame := range buffer {
		flat[2*i] = frame[0]
		flat[2*i+1] = frame[1]
	}
	vek32.Mul_Into(square, flat, flat)
	meanSquare := vek32.Mean(square)
	vek32.Abs_Inplace(flat)
	return BlockLevels{
		Peak: vek32.Max(flat),
		RMS:  float32(math.Sqrt(float64(meanSquare))),
	}
}
