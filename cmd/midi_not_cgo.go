//go:build !cgo

package cmd

func NewMIDIInput(sampleRate int) MIDIInput {
	// with no cgo, we cannot use MIDI, so return a null input
	return NullMIDIInput{}
}
