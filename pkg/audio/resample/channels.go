// ABOUTME: Channel count converter
// ABOUTME: Upmixes by repeating source channels and downmixes by averaging or dropping
package resample

import (
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio"
)

// ChannelConverter remaps interleaved frames to a different channel count.
//
//   - upmix: output channel c takes input channel c % inChannels, so mono is
//     duplicated to every output channel
//   - downmix to mono: the average of all input channels
//   - downmix to n > 1 channels: the first n input channels
type ChannelConverter struct {
	src   audio.Source
	from  int
	to    int
	frame []float32
	pos   int
}

// ConvertChannels returns src remapped to channels. If the counts already
// match, src is returned unchanged.
func ConvertChannels(src audio.Source, channels int) audio.Source {
	if src.Channels() == channels {
		return src
	}
	return NewChannelConverter(src, channels)
}

// NewChannelConverter creates a converter from src's layout to channels
func NewChannelConverter(src audio.Source, channels int) *ChannelConverter {
	return &ChannelConverter{
		src:   src,
		from:  src.Channels(),
		to:    channels,
		frame: make([]float32, src.Channels()),
	}
}

func (c *ChannelConverter) Channels() int   { return c.to }
func (c *ChannelConverter) SampleRate() int { return c.src.SampleRate() }

func (c *ChannelConverter) Next() (float32, bool) {
	if c.pos == 0 {
		if !readFrame(c.src, c.frame) {
			return 0, false
		}
	}

	var v float32
	if c.to == 1 {
		var sum float32
		for _, s := range c.frame {
			sum += s
		}
		v = sum / float32(c.from)
	} else {
		v = c.frame[c.pos%c.from]
	}

	c.pos++
	if c.pos == c.to {
		c.pos = 0
	}
	return v, true
}

// TotalDuration forwards the inner source's length
func (c *ChannelConverter) TotalDuration() time.Duration {
	return audio.TotalDuration(c.src)
}

// Close closes the inner source if it holds resources
func (c *ChannelConverter) Close() error {
	return audio.CloseSource(c.src)
}
