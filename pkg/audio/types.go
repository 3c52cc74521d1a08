// ABOUTME: Audio type definitions
// ABOUTME: Defines the Source capability, stream formats and sample conversions
package audio

import (
	"fmt"
	"io"
	"math"
	"time"
)

const (
	// 16-bit PCM range constants
	MaxInt16 = 32767
	MinInt16 = -32768

	// Uint16Midpoint is the unsigned 16-bit encoding of silence
	Uint16Midpoint = 32768
)

// Source is a lazily produced sequence of interleaved samples.
//
// Channels and SampleRate are fixed for the lifetime of the source. Next
// returns false once the source is exhausted and must not be polled after
// that; sources in this module keep returning false.
type Source interface {
	// Channels returns the number of interleaved channels
	Channels() int
	// SampleRate returns the sample rate in Hz
	SampleRate() int
	// Next returns the next sample, or false when exhausted
	Next() (float32, bool)
}

// Timed is implemented by sources that know their total length.
type Timed interface {
	// TotalDuration returns the playback length, or 0 when unknown
	TotalDuration() time.Duration
}

// CloseSource releases src if it holds resources (files, decoders, goroutines)
func CloseSource(src Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Format describes the channel layout and rate of a sample stream
type Format struct {
	Channels   int
	SampleRate int
}

// FormatOf returns the format of a source
func FormatOf(src Source) Format {
	return Format{Channels: src.Channels(), SampleRate: src.SampleRate()}
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Validate reports whether the format can carry samples
func (f Format) Validate() error {
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	return nil
}

// FramesToDuration converts a frame count at sampleRate into a duration
func FramesToDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames * int64(time.Second) / int64(sampleRate))
}

// TotalDuration returns the length of src if it reports one
func TotalDuration(src Source) time.Duration {
	if t, ok := src.(Timed); ok {
		return t.TotalDuration()
	}
	return 0
}

// Clamp limits a sample to the normalized [-1, 1] range. NaN becomes silence.
func Clamp(sample float32) float32 {
	if sample != sample {
		return 0
	}
	if sample > 1 {
		return 1
	}
	if sample < -1 {
		return -1
	}
	return sample
}

// ToInt16 converts a normalized sample to signed 16-bit PCM.
// Positive values scale by 32767 and negative values by 32768, rounding half
// away from zero, so both ends of the range are reachable without wrapping.
func ToInt16(sample float32) int16 {
	s := float64(Clamp(sample))
	if s >= 0 {
		return int16(math.Round(s * MaxInt16))
	}
	return int16(math.Round(s * -MinInt16))
}

// ToUint16 converts a normalized sample to unsigned 16-bit PCM (silence is 32768)
func ToUint16(sample float32) uint16 {
	return uint16(int32(ToInt16(sample)) + Uint16Midpoint)
}

// FromInt16 converts signed 16-bit PCM to a normalized sample.
// It is the exact inverse of ToInt16.
func FromInt16(sample int16) float32 {
	if sample >= 0 {
		return float32(sample) / MaxInt16
	}
	return float32(sample) / -MinInt16
}

// FromInt converts a signed integer sample of the given bit depth to a normalized sample
func FromInt(sample int32, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	return float32(float64(sample) / float64(int64(1)<<(bitDepth-1)))
}
