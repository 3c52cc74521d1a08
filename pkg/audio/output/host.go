// ABOUTME: Hardware abstraction for output backends
// ABOUTME: Defines Host, Device, Stream, sample formats and config ranking
package output

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio"
)

// Host is an audio backend that can enumerate output devices
type Host interface {
	Name() string
	DefaultOutputDevice() (Device, error)
	OutputDevices() ([]Device, error)
	Close() error
}

// Device is one output endpoint of a Host
type Device interface {
	// ID identifies the device within its host
	ID() string
	Name() string
	DefaultOutputConfig() (SupportedStreamConfig, error)
	SupportedOutputConfigs() ([]SupportedConfigRange, error)
	// BuildOutputStream opens a stream that pulls audio from r. onError is
	// called from the backend when the running stream fails.
	BuildOutputStream(cfg SupportedStreamConfig, r *Renderer, onError func(error)) (Stream, error)
}

// Stream is an opened hardware stream
type Stream interface {
	Play() error
	Close() error
}

// SampleFormat is the sample encoding expected by a device
type SampleFormat int

const (
	FormatF32 SampleFormat = iota
	FormatI16
	FormatU16
)

func (f SampleFormat) String() string {
	switch f {
	case FormatF32:
		return "f32"
	case FormatI16:
		return "i16"
	case FormatU16:
		return "u16"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// SampleSize returns the encoded size of one sample in bytes
func (f SampleFormat) SampleSize() int {
	if f == FormatF32 {
		return 4
	}
	return 2
}

// SupportedStreamConfig is one concrete format a stream can be opened with
type SupportedStreamConfig struct {
	Channels   int
	SampleRate int
	Format     SampleFormat
}

func (c SupportedStreamConfig) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", c.SampleRate, c.Channels, c.Format)
}

// AudioFormat returns the channel layout and rate of the config
func (c SupportedStreamConfig) AudioFormat() audio.Format {
	return audio.Format{Channels: c.Channels, SampleRate: c.SampleRate}
}

// BufferFrames returns how many frames cover d at the config's rate
func (c SupportedStreamConfig) BufferFrames(d time.Duration) int {
	return int(int64(c.SampleRate) * int64(d) / int64(time.Second))
}

// SupportedConfigRange is a family of configs that differ only in sample rate
type SupportedConfigRange struct {
	Channels      int
	MinSampleRate int
	MaxSampleRate int
	Format        SampleFormat
}

func (r SupportedConfigRange) String() string {
	return fmt.Sprintf("%d-%dHz/%dch/%s", r.MinSampleRate, r.MaxSampleRate, r.Channels, r.Format)
}

// WithSampleRate returns the concrete config at rate
func (r SupportedConfigRange) WithSampleRate(rate int) SupportedStreamConfig {
	return SupportedStreamConfig{Channels: r.Channels, SampleRate: rate, Format: r.Format}
}

// WithMaxSampleRate returns the concrete config at the highest rate
func (r SupportedConfigRange) WithMaxSampleRate() SupportedStreamConfig {
	return r.WithSampleRate(r.MaxSampleRate)
}

// Contains reports whether rate lies inside the range, bounds included
func (r SupportedConfigRange) Contains(rate int) bool {
	return rate >= r.MinSampleRate && rate <= r.MaxSampleRate
}

// CDSampleRate is preferred when a range allows it
const CDSampleRate = 44100

func formatRank(f SampleFormat) int {
	switch f {
	case FormatF32:
		return 0
	case FormatI16:
		return 1
	default:
		return 2
	}
}

func channelRank(ch int) int {
	switch ch {
	case 2:
		return 0
	case 1:
		return 1
	default:
		return 2
	}
}

func boolRank(b bool) int {
	if b {
		return 0
	}
	return 1
}

// CompareRanges orders ranges from most to least preferred: stereo, then
// mono, then more channels; f32, then i16, then u16; ranges containing
// 44.1 kHz; higher maximum rate.
func CompareRanges(a, b SupportedConfigRange) int {
	if c := cmp.Compare(channelRank(a.Channels), channelRank(b.Channels)); c != 0 {
		return c
	}
	if a.Channels > 2 && b.Channels > 2 && a.Channels != b.Channels {
		return cmp.Compare(b.Channels, a.Channels)
	}
	if c := cmp.Compare(formatRank(a.Format), formatRank(b.Format)); c != 0 {
		return c
	}
	if c := cmp.Compare(boolRank(a.Contains(CDSampleRate)), boolRank(b.Contains(CDSampleRate))); c != 0 {
		return c
	}
	return cmp.Compare(b.MaxSampleRate, a.MaxSampleRate)
}

// RankRanges sorts ranges in place by preference, keeping the device's order for ties
func RankRanges(ranges []SupportedConfigRange) {
	slices.SortStableFunc(ranges, CompareRanges)
}

// CandidateRates returns the rates tried for a range: the maximum, 44.1 kHz
// when strictly inside, then the minimum, without repeats.
func CandidateRates(r SupportedConfigRange) []int {
	rates := []int{r.MaxSampleRate}
	if CDSampleRate > r.MinSampleRate && CDSampleRate < r.MaxSampleRate {
		rates = append(rates, CDSampleRate)
	}
	if r.MinSampleRate != r.MaxSampleRate {
		rates = append(rates, r.MinSampleRate)
	}
	return rates
}
