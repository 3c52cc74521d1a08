// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Wraps an audio.Source and interpolates between neighbouring frames
package resample

import (
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio"
)

// RateConverter performs linear interpolation to convert between sample rates.
// The interpolation phase is kept as an integer numerator over the reduced
// output rate, so long streams never drift.
type RateConverter struct {
	src      audio.Source
	channels int
	outRate  int

	// rates reduced by their GCD
	from int
	to   int

	phase   int // position between cur and next, in units of 1/to
	cur     []float32
	next    []float32
	hasNext bool
	started bool
	done    bool

	frame []float32
	pos   int
}

// ConvertRate returns src resampled to rate. If the rates already match,
// src is returned unchanged.
func ConvertRate(src audio.Source, rate int) audio.Source {
	if src.SampleRate() == rate {
		return src
	}
	return NewRateConverter(src, rate)
}

// NewRateConverter creates a resampler from src's rate to rate
func NewRateConverter(src audio.Source, rate int) *RateConverter {
	channels := src.Channels()
	g := gcd(src.SampleRate(), rate)
	return &RateConverter{
		src:      src,
		channels: channels,
		outRate:  rate,
		from:     src.SampleRate() / g,
		to:       rate / g,
		cur:      make([]float32, channels),
		next:     make([]float32, channels),
		frame:    make([]float32, channels),
		pos:      channels,
	}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// readFrame fills buf with one frame; a partial trailing frame counts as the end
func readFrame(src audio.Source, buf []float32) bool {
	for i := range buf {
		v, ok := src.Next()
		if !ok {
			return false
		}
		buf[i] = v
	}
	return true
}

func (r *RateConverter) Channels() int   { return r.channels }
func (r *RateConverter) SampleRate() int { return r.outRate }

func (r *RateConverter) Next() (float32, bool) {
	if r.pos >= r.channels {
		if !r.nextFrame() {
			return 0, false
		}
		r.pos = 0
	}
	v := r.frame[r.pos]
	r.pos++
	return v, true
}

func (r *RateConverter) nextFrame() bool {
	if r.done {
		return false
	}
	if !r.started {
		r.started = true
		if !readFrame(r.src, r.cur) {
			r.done = true
			return false
		}
		r.hasNext = readFrame(r.src, r.next)
	}

	for r.phase >= r.to {
		if !r.hasNext {
			r.done = true
			return false
		}
		r.phase -= r.to
		r.cur, r.next = r.next, r.cur
		r.hasNext = readFrame(r.src, r.next)
	}

	// past the last input frame the signal is held rather than extrapolated
	frac := float32(r.phase) / float32(r.to)
	for ch := 0; ch < r.channels; ch++ {
		a := r.cur[ch]
		b := a
		if r.hasNext {
			b = r.next[ch]
		}
		r.frame[ch] = a*(1-frac) + b*frac
	}

	r.phase += r.from
	return true
}

// OutputFramesFor returns how many frames a finite input of inputFrames yields
func (r *RateConverter) OutputFramesFor(inputFrames int) int {
	return (inputFrames*r.to + r.from - 1) / r.from
}

// TotalDuration forwards the inner source's length
func (r *RateConverter) TotalDuration() time.Duration {
	return audio.TotalDuration(r.src)
}

// Close closes the inner source if it holds resources
func (r *RateConverter) Close() error {
	return audio.CloseSource(r.src)
}
