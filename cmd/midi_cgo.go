//go:build cgo

package cmd

import (
	"github.com/vsariola/tahti/host/gomidi"
)

func NewMIDIInput(sampleRate int) MIDIInput {
	return gomidi.NewContext(sampleRate)
}
