// Package cmd has the helpers shared by the tahti command line tools.
package cmd

import (
	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/host"
)

// MIDIInput is a source of live MIDI, drained into a host at block
// boundaries. Builds without cgo get a null implementation.
type MIDIInput interface {
	// TryToOpenBy opens the first input device whose name starts with
	// namePrefix, or just the first device when takeFirst is set.
	TryToOpenBy(namePrefix string, takeFirst bool)
	// MapCC routes a MIDI controller to a parameter.
	MapCC(controller uint8, id tahti.ParamID, min, max float64)
	// Drain stages the messages of the next block onto the host.
	Drain(h *host.Host, frames int)
	HasDeviceOpen() bool
	Close()
}

// NullMIDIInput is a MIDIInput with no devices.
type NullMIDIInput struct{}

func (NullMIDIInput) TryToOpenBy(namePrefix string, takeFirst bool) {}

func (NullMIDIInput) MapCC(controller uint8, id tahti.ParamID, min, max float64) {}

func (NullMIDIInput) Drain(h *host.Host, frames int) {}

func (NullMIDIInput) HasDeviceOpen() bool { return false }

func (NullMIDIInput) Close() {}
