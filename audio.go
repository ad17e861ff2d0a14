package tahti

// AudioBuffer is a buffer of stereo audio samples.
type AudioBuffer [][2]float32

// Clear zeroes the buffer in place.
func (buffer AudioBuffer) Clear() {
	for i := range buffer {
		buffer[i] = [2]float32{}
	}
}

// AudioSink is something that audio can be played through, e.g. a
// speaker or a file.
type AudioSink interface {
	WriteAudio(buffer AudioBuffer) error
	Close() error
}

// AudioContext is the audio output device of the running system.
type AudioContext interface {
	Output() AudioSink
	Close() error
}

// NullAudioContext discards all audio written to it.
type NullAudioContext struct{}

func (NullAudioContext) Output() AudioSink { return NullAudioSink{} }
func (NullAudioContext) Close() error      { return nil }

type NullAudioSink struct{}

func (NullAudioSink) WriteAudio(buffer AudioBuffer) error { return nil }
func (NullAudioSink) Close() error                        { return nil }
