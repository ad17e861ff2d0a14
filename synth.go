package tahti

// Synth renders audio for a fixed set of voice slots. The engine
// decides which slot sounds which note and with which parameter values;
// the synth decides how that sounds and when a released slot actually
// falls silent. All methods are called from the audio context only.
type Synth interface {
	// Render adds the output of all sounding voices into buffer. The
	// buffer is not cleared first, so several sources can mix into it.
	Render(buffer AudioBuffer) error

	// Trigger restarts the voice slot with the given key and velocity,
	// dropping whatever the slot was playing and clearing its per-voice
	// parameter overrides.
	Trigger(slot int, key byte, velocity float64)

	// Release lets the voice slot ring out. Releasing a slot twice, or
	// a slot that is not playing, does nothing.
	Release(slot int)

	// Choke silences the voice slot right away, skipping its release
	// phase. Choking a silent slot does nothing.
	Choke(slot int)

	// Finished reports whether the slot has gone fully silent and can
	// be reused. Slots are finished before their first trigger.
	Finished(slot int) bool

	// SetParameter sets the value a parameter has for every voice
	// without a voice-scoped override.
	SetParameter(id ParamID, value float64)

	// SetVoiceParameter overrides a parameter for one slot. The
	// override lasts until the slot is retriggered.
	SetVoiceParameter(slot int, id ParamID, value float64)
}

// ParamInfo describes one parameter a synth exposes. The engine
// consumes these once, outside the audio context, when a driver is
// built; ids must be unique within the synth.
type ParamInfo struct {
	ID       ParamID
	Name     string
	Min, Max float64
	Default  float64
	PerVoice bool // whether voice-scoped events to this parameter make sense
}

// ParamLister is implemented by synths that can enumerate their
// parameters, so that a driver can register them automatically.
type ParamLister interface {
	Params() []ParamInfo
}
