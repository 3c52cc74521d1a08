// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC frame by frame with mewkiz/flac
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	"github.com/mewkiz/flac"
)

type flacDecoder struct {
	stream   *flac.Stream
	channels int
	bitDepth int
	out      []float32
}

func newFLAC(r io.Reader) (*Stream, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	format := audio.Format{Channels: int(info.NChannels), SampleRate: int(info.SampleRate)}
	duration := audio.FramesToDuration(int64(info.NSamples), format.SampleRate)

	dec := &flacDecoder{
		stream:   stream,
		channels: format.Channels,
		bitDepth: int(info.BitsPerSample),
	}
	return newStream(FLAC, format, duration, dec, r)
}

func (d *flacDecoder) decode() ([]float32, error) {
	frame, err := d.stream.ParseNext()
	if err != nil {
		return nil, err
	}
	if len(frame.Subframes) < d.channels {
		return nil, fmt.Errorf("flac frame has %d subframes, expected %d", len(frame.Subframes), d.channels)
	}

	n := int(frame.BlockSize)
	d.out = d.out[:0]
	for i := 0; i < n; i++ {
		for ch := 0; ch < d.channels; ch++ {
			d.out = append(d.out, audio.FromInt(frame.Subframes[ch].Samples[i], d.bitDepth))
		}
	}
	return d.out, nil
}
