// Package oto plays audio through the system audio device using
// ebitengine/oto. It adapts oto's pull-style player to the push-style
// tahti.AudioSink: WriteAudio hands samples to an internal buffer the
// player drains on its own thread.
package oto

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/tahti"
)

type (
	OtoContext struct {
		context    *oto.Context
		sampleRate int
	}

	OtoOutput struct {
		player    *oto.Player
		buffer    *pullBuffer
		tmpBuffer []byte
	}

	// pullBuffer sits between WriteAudio pushes and oto's Read pulls.
	// Read never blocks: when the writer has fallen behind, it pads
	// with silence instead, so the device keeps running and WriteAudio
	// sets the pace.
	pullBuffer struct {
		mutex  sync.Mutex
		data   []byte
		closed bool
	}
)

const otoBufferSize = 8192

// NewContext opens the system audio device for 16-bit stereo output at
// the given sample rate and waits until it is ready.
func NewContext(sampleRate int) (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context, sampleRate: sampleRate}, nil
}

func (c *OtoContext) Output() tahti.AudioSink {
	buffer := &pullBuffer{}
	player := c.context.NewPlayer(buffer)
	player.SetBufferSize(otoBufferSize)
	player.Play()
	return &OtoOutput{player: player, buffer: buffer, tmpBuffer: make([]byte, 0)}
}

func (c *OtoContext) Close() error {
	// an oto context cannot be closed; it stays open until the process
	// exits
	return nil
}

// WriteAudio implements tahti.AudioSink, converting the samples to
// 16-bit little-endian and queueing them for the device. It blocks
// until the queue has room, which is what paces an offline producer to
// real time.
func (o *OtoOutput) WriteAudio(buffer tahti.AudioBuffer) error {
	// we reuse the old capacity tmpBuffer by setting its length to zero.
	// then, we save the tmpBuffer so we can reuse it next time
	o.tmpBuffer = FloatBufferTo16BitLE(buffer, o.tmpBuffer[:0])
	if err := o.buffer.write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

// Close stops playback once the queued audio has played out.
func (o *OtoOutput) Close() error {
	o.buffer.close()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

func (b *pullBuffer) write(data []byte) error {
	for len(data) > 0 {
		b.mutex.Lock()
		if b.closed {
			b.mutex.Unlock()
			return io.ErrClosedPipe
		}
		room := otoBufferSize - len(b.data)
		if room > len(data) {
			room = len(data)
		}
		b.data = append(b.data, data[:room]...)
		data = data[room:]
		b.mutex.Unlock()
	}
	return nil
}

func (b *pullBuffer) close() {
	b.mutex.Lock()
	b.closed = true
	b.mutex.Unlock()
}

func (b *pullBuffer) Read(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	n := copy(p, b.data)
	b.data = b.data[:copy(b.data, b.data[n:])]
	if n < len(p) && !b.closed {
		// underrun; silence keeps the device fed
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		n = len(p)
	}
	if n == 0 && b.closed {
		return 0, io.EOF
	}
	return n, nil
}
