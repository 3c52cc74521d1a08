// ABOUTME: Decode-ahead source wrapper
// ABOUTME: Moves expensive sample production off the audio callback goroutine
package source

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio"
)

const (
	// DefaultChunkFrames is the decode-ahead chunk size in frames
	DefaultChunkFrames = 4096
	// DefaultDepth is the number of chunks decoded ahead
	DefaultDepth = 8
)

// BufferedSource pulls its inner source on a dedicated goroutine and hands
// whole-frame chunks to the consumer through a bounded channel.
//
// Next never waits: if the producer has fallen behind, one frame of silence
// is returned instead and counted as an underrun.
type BufferedSource struct {
	channels   int
	sampleRate int
	total      time.Duration

	chunks chan []float32
	free   chan []float32
	stop   chan struct{}
	once   sync.Once

	// consumer state, only touched by Next
	cur     []float32
	pos     int
	silence int
	done    bool

	underruns atomic.Int64
}

// Buffered starts decoding src ahead of playback. The first chunk is
// produced before Buffered returns so playback starts with real data.
func Buffered(src audio.Source, chunkFrames, depth int) *BufferedSource {
	if chunkFrames <= 0 {
		chunkFrames = DefaultChunkFrames
	}
	if depth <= 0 {
		depth = DefaultDepth
	}

	b := &BufferedSource{
		channels:   src.Channels(),
		sampleRate: src.SampleRate(),
		total:      audio.TotalDuration(src),
		chunks:     make(chan []float32, depth),
		free:       make(chan []float32, depth+2),
		stop:       make(chan struct{}),
	}

	size := chunkFrames * b.channels
	first, ended := fillChunk(src, make([]float32, size), b.channels)
	if len(first) > 0 {
		b.chunks <- first
	}
	if ended {
		close(b.chunks)
		closeInner(src)
		return b
	}

	go b.produce(src, size)
	return b
}

// fillChunk pulls up to len(buf) samples and trims the result to whole frames
func fillChunk(src audio.Source, buf []float32, channels int) ([]float32, bool) {
	n := 0
	for n < len(buf) {
		v, ok := src.Next()
		if !ok {
			return buf[:n-n%channels], true
		}
		buf[n] = v
		n++
	}
	return buf[:n], false
}

func closeInner(src audio.Source) {
	if err := audio.CloseSource(src); err != nil {
		log.Printf("Warning: failed to close buffered source: %v", err)
	}
}

func (b *BufferedSource) produce(src audio.Source, size int) {
	defer closeInner(src)
	defer close(b.chunks)

	for {
		var buf []float32
		select {
		case buf = <-b.free:
			buf = buf[:size]
		default:
			buf = make([]float32, size)
		}

		chunk, ended := fillChunk(src, buf, b.channels)
		if len(chunk) > 0 {
			select {
			case b.chunks <- chunk:
			case <-b.stop:
				return
			}
		}
		if ended {
			return
		}
	}
}

func (b *BufferedSource) Channels() int   { return b.channels }
func (b *BufferedSource) SampleRate() int { return b.sampleRate }

func (b *BufferedSource) Next() (float32, bool) {
	if b.pos < len(b.cur) {
		v := b.cur[b.pos]
		b.pos++
		return v, true
	}
	if b.silence > 0 {
		b.silence--
		return 0, true
	}
	if b.done {
		return 0, false
	}

	select {
	case chunk, ok := <-b.chunks:
		if !ok {
			b.done = true
			return 0, false
		}
		b.recycle()
		b.cur = chunk
		b.pos = 1
		return chunk[0], true
	default:
		// chunk boundaries are frame boundaries, so a whole frame of silence
		// keeps the channels aligned
		b.underruns.Add(1)
		b.silence = b.channels - 1
		return 0, true
	}
}

func (b *BufferedSource) recycle() {
	if b.cur == nil {
		return
	}
	select {
	case b.free <- b.cur[:cap(b.cur)]:
	default:
	}
	b.cur = nil
}

// Underruns returns how many frames of silence were substituted
func (b *BufferedSource) Underruns() int64 {
	return b.underruns.Load()
}

// TotalDuration forwards the inner source's length
func (b *BufferedSource) TotalDuration() time.Duration {
	return b.total
}

// Close stops the decode goroutine; the inner source is closed once it exits
func (b *BufferedSource) Close() error {
	b.once.Do(func() {
		close(b.stop)
	})
	return nil
}
