package tahti

// SteadyTimeUnknown in Block.SteadyTime means the host cannot provide a
// steady sample clock for this stream.
const SteadyTimeUnknown int64 = -1

// Block describes one process call. The host fills it in, calls
// Plugin.Process exactly once with it, and only then reads Out and
// OutEvents back. The plugin may only use the block inside that call.
type Block struct {
	// SteadyTime is a free-running sample counter for the first frame of
	// the block. Across consecutive blocks of a stream it grows by at
	// least Frames; it never goes backwards. SteadyTimeUnknown means the
	// host has no such clock, which is not an error.
	SteadyTime int64

	// Frames is the length of the block. Zero-length blocks are legal
	// and still deliver events at time 0.
	Frames int

	// Transport is the host timeline snapshot at the start of the block,
	// or nil when the host has no transport, in which case the plugin
	// runs free and forgets any timeline it saw before.
	Transport *TransportData

	// In is the input audio, if the host routes any; may be nil.
	In AudioBuffer

	// Out receives the rendered audio. Must hold at least Frames frames.
	Out AudioBuffer

	// InEvents are the events for this block, sorted by time, all with
	// Time < Frames (Time == 0 when Frames == 0).
	InEvents InEvents

	// OutEvents receives events from the plugin, pushed in time order.
	OutEvents OutEvents
}
