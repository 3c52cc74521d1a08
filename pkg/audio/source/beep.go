// ABOUTME: Adapter from gopxl/beep streamers to audio.Source
// ABOUTME: Lets beep effects and generators play through the mixer
package source

import (
	"github.com/gopxl/beep"
)

const beepBufferFrames = 512

// BeepSource exposes a beep.Streamer as an interleaved stereo source
type BeepSource struct {
	streamer   beep.Streamer
	sampleRate int

	buf  [beepBufferFrames][2]float64
	n    int
	pos  int // sample position within buf[:n]
	done bool
}

// FromBeep adapts streamer; beep always streams stereo frames at format.SampleRate
func FromBeep(streamer beep.Streamer, format beep.Format) *BeepSource {
	return &BeepSource{
		streamer:   streamer,
		sampleRate: int(format.SampleRate),
	}
}

func (b *BeepSource) Channels() int   { return 2 }
func (b *BeepSource) SampleRate() int { return b.sampleRate }

func (b *BeepSource) Next() (float32, bool) {
	if b.pos >= b.n*2 {
		if b.done {
			return 0, false
		}
		n, ok := b.streamer.Stream(b.buf[:])
		if !ok || n == 0 {
			b.done = true
			return 0, false
		}
		b.n = n
		b.pos = 0
	}
	frame := b.buf[b.pos/2]
	v := float32(frame[b.pos%2])
	b.pos++
	return v, true
}

// Err returns the streamer's error, if any
func (b *BeepSource) Err() error {
	return b.streamer.Err()
}
