// ABOUTME: Length-limiting source wrapper
// ABOUTME: Truncates a source to a duration measured in whole frames
package source

import (
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio"
)

// TakeSource yields at most a fixed number of frames from its inner source
type TakeSource struct {
	src       audio.Source
	remaining int64 // samples
	limit     time.Duration
}

// Take limits src to d, rounded down to whole frames
func Take(src audio.Source, d time.Duration) *TakeSource {
	frames := int64(d) * int64(src.SampleRate()) / int64(time.Second)
	return &TakeSource{
		src:       src,
		remaining: frames * int64(src.Channels()),
		limit:     audio.FramesToDuration(frames, src.SampleRate()),
	}
}

func (t *TakeSource) Channels() int   { return t.src.Channels() }
func (t *TakeSource) SampleRate() int { return t.src.SampleRate() }

func (t *TakeSource) Next() (float32, bool) {
	if t.remaining <= 0 {
		return 0, false
	}
	v, ok := t.src.Next()
	if !ok {
		t.remaining = 0
		return 0, false
	}
	t.remaining--
	return v, true
}

// TotalDuration returns the shorter of the limit and the inner length
func (t *TakeSource) TotalDuration() time.Duration {
	if inner := audio.TotalDuration(t.src); inner > 0 && inner < t.limit {
		return inner
	}
	return t.limit
}

// Close closes the inner source if it holds resources
func (t *TakeSource) Close() error {
	return audio.CloseSource(t.src)
}
