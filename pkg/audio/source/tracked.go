// ABOUTME: Position-tracking source wrapper
// ABOUTME: Counts emitted frames so other goroutines can read playback progress
package source

import (
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio"
)

// TrackedSource counts the samples pulled through it.
// Next runs on the audio callback; Position and Finished may be called from
// any goroutine.
type TrackedSource struct {
	src      audio.Source
	samples  atomic.Int64
	finished atomic.Bool
}

// Tracked wraps src with a position counter
func Tracked(src audio.Source) *TrackedSource {
	return &TrackedSource{src: src}
}

func (t *TrackedSource) Channels() int   { return t.src.Channels() }
func (t *TrackedSource) SampleRate() int { return t.src.SampleRate() }

func (t *TrackedSource) Next() (float32, bool) {
	v, ok := t.src.Next()
	if !ok {
		t.finished.Store(true)
		return 0, false
	}
	t.samples.Add(1)
	return v, true
}

// underrunner is implemented by sources that substitute silence when data
// is late, such as BufferedSource
type underrunner interface {
	Underruns() int64
}

// Position returns how much of the source has been played. Silence frames
// substituted by an underrunning inner source do not count.
func (t *TrackedSource) Position() time.Duration {
	channels := t.src.Channels()
	if channels <= 0 {
		return 0
	}
	frames := t.samples.Load() / int64(channels)
	if u, ok := t.src.(underrunner); ok {
		frames = max(frames-u.Underruns(), 0)
	}
	return audio.FramesToDuration(frames, t.src.SampleRate())
}

// Finished reports whether the source has been exhausted
func (t *TrackedSource) Finished() bool {
	return t.finished.Load()
}

// TotalDuration forwards the inner source's length
func (t *TrackedSource) TotalDuration() time.Duration {
	return audio.TotalDuration(t.src)
}

// Close closes the inner source if it holds resources
func (t *TrackedSource) Close() error {
	return audio.CloseSource(t.src)
}
