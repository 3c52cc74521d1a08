// ABOUTME: Frame-aligned passthrough for sources that need no conversion
// ABOUTME: Drops a partial trailing frame the same way the converters do
package resample

import (
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio"
)

// FrameSource forwards src one whole frame at a time. A trailing partial
// frame is treated as the end of the stream.
type FrameSource struct {
	src   audio.Source
	frame []float32
	pos   int
}

// WholeFrames wraps src so it never ends mid-frame
func WholeFrames(src audio.Source) *FrameSource {
	n := src.Channels()
	return &FrameSource{src: src, frame: make([]float32, n), pos: n}
}

func (f *FrameSource) Channels() int   { return f.src.Channels() }
func (f *FrameSource) SampleRate() int { return f.src.SampleRate() }

func (f *FrameSource) Next() (float32, bool) {
	if f.pos == len(f.frame) {
		if !readFrame(f.src, f.frame) {
			return 0, false
		}
		f.pos = 0
	}
	v := f.frame[f.pos]
	f.pos++
	return v, true
}

// TotalDuration forwards the inner source's length
func (f *FrameSource) TotalDuration() time.Duration {
	return audio.TotalDuration(f.src)
}

// Close closes the inner source if it holds resources
func (f *FrameSource) Close() error {
	return audio.CloseSource(f.src)
}
