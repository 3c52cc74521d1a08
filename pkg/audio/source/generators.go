// ABOUTME: Generator sources for silence, constant levels, test tones and slices
// ABOUTME: Used by tests, examples and the CLI test tone
package source

import (
	"math"
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio"
)

// ConstantSource emits the same sample on every channel forever
type ConstantSource struct {
	channels   int
	sampleRate int
	value      float32
}

// Constant creates an infinite source emitting value on every channel
func Constant(channels, sampleRate int, value float32) *ConstantSource {
	return &ConstantSource{channels: channels, sampleRate: sampleRate, value: value}
}

// Silence creates an infinite source of zero samples
func Silence(channels, sampleRate int) *ConstantSource {
	return Constant(channels, sampleRate, 0)
}

func (s *ConstantSource) Channels() int         { return s.channels }
func (s *ConstantSource) SampleRate() int       { return s.sampleRate }
func (s *ConstantSource) Next() (float32, bool) { return s.value, true }

// SineSource generates a sine tone duplicated on every channel
type SineSource struct {
	channels   int
	sampleRate int
	frequency  float64
	amplitude  float64

	frameIndex uint64
	channel    int
	current    float32
}

// Sine creates an infinite sine tone (440Hz at 0.5 is the classic test tone)
func Sine(channels, sampleRate int, frequency, amplitude float64) *SineSource {
	return &SineSource{
		channels:   channels,
		sampleRate: sampleRate,
		frequency:  frequency,
		amplitude:  amplitude,
	}
}

func (s *SineSource) Channels() int   { return s.channels }
func (s *SineSource) SampleRate() int { return s.sampleRate }

func (s *SineSource) Next() (float32, bool) {
	if s.channel == 0 {
		t := float64(s.frameIndex) / float64(s.sampleRate)
		s.current = float32(s.amplitude * math.Sin(2*math.Pi*s.frequency*t))
		s.frameIndex++
	}
	s.channel++
	if s.channel == s.channels {
		s.channel = 0
	}
	return s.current, true
}

// SliceSource plays back interleaved samples held in memory
type SliceSource struct {
	channels   int
	sampleRate int
	data       []float32
	pos        int
}

// FromSlice creates a finite source over interleaved samples.
// The slice is not copied.
func FromSlice(channels, sampleRate int, samples []float32) *SliceSource {
	return &SliceSource{channels: channels, sampleRate: sampleRate, data: samples}
}

func (s *SliceSource) Channels() int   { return s.channels }
func (s *SliceSource) SampleRate() int { return s.sampleRate }

func (s *SliceSource) Next() (float32, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	v := s.data[s.pos]
	s.pos++
	return v, true
}

// TotalDuration returns the length of the held samples
func (s *SliceSource) TotalDuration() time.Duration {
	if s.channels <= 0 {
		return 0
	}
	return audio.FramesToDuration(int64(len(s.data)/s.channels), s.sampleRate)
}

// Collect drains up to n samples from src. It is mostly useful in tests.
func Collect(src audio.Source, n int) []float32 {
	out := make([]float32, 0, n)
	for len(out) < n {
		v, ok := src.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}
