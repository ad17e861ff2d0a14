package tahti

// Status is the verdict of one process call. Anything but StatusError
// means the block was processed; the non-error values tell the host how
// eagerly it needs to keep calling.
type Status int32

const (
	// StatusError means processing failed; the host discards the block's
	// audio and output events.
	StatusError Status = iota
	// StatusContinue asks for processing to continue unconditionally.
	StatusContinue
	// StatusContinueIfNotQuiet asks for processing to continue until the
	// output has been quiet for a while.
	StatusContinueIfNotQuiet
	// StatusTail asks for processing to continue until the reported tail
	// has played out.
	StatusTail
	// StatusSleep means the plugin has nothing to play; the host may
	// stop calling until new events arrive.
	StatusSleep
)

var statusNames = [...]string{"error", "continue", "continue if not quiet", "tail", "sleep"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "invalid status"
	}
	return statusNames[s]
}
