package tahti

// Plugin is the real-time side of a plugin instance. Process is called
// by exactly one thread at a time, always the same audio context; it
// must not allocate, block or lock. Everything else a host may want
// from a plugin is reached through Capability.
type Plugin interface {
	Process(block *Block) Status

	// Capability returns the plugin's implementation of the capability
	// named by id, or nil when the plugin does not support it. A nil
	// return is a normal answer, not an error. Hosts query capabilities
	// at load time, never during Process.
	Capability(id string) any
}

// Capability identifiers understood by this package. A Capability
// result for these ids can be type asserted to the interface named in
// the comment.
const (
	CapTail           = "tahti.tail"            // Tailer
	CapVoiceInfo      = "tahti.voice-info"      // VoiceInfoProvider
	CapNoteExpression = "tahti.note-expression" // ExpressionSink
)

// Tailer reports how long the output keeps ringing after all voices
// have been released, e.g. a reverb or delay tail.
type Tailer interface {
	TailFrames() int
}

// VoiceInfo describes how many voices a plugin plays. It is about the
// configuration, not about how many voices happen to sound right now.
type VoiceInfo struct {
	// Count is the number of voices the current configuration can use,
	// 1 <= Count <= Capacity. A host seeing Count == 1 may treat the
	// plugin as monophonic and skip per-voice modulation entirely.
	Count int
	// Capacity is the number of voice slots allocated.
	Capacity int
}

type VoiceInfoProvider interface {
	VoiceInfo() VoiceInfo
}

// ExpressionSink receives per-note expression values for a voice slot.
type ExpressionSink interface {
	SetVoiceExpression(slot int, id ExpressionID, value float64)
}
