// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 through go-mp3, which always yields 16-bit stereo
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 output layout
const (
	mp3Channels   = 2
	mp3FrameBytes = 4
)

type mp3Decoder struct {
	decoder *mp3.Decoder
	raw     []byte
	out     []float32
}

func newMP3(r io.Reader) (*Stream, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	// Length is -1 unless the input can seek
	duration := audio.FramesToDuration(max(decoder.Length(), 0)/mp3FrameBytes, decoder.SampleRate())

	dec := &mp3Decoder{
		decoder: decoder,
		raw:     make([]byte, 1152*mp3FrameBytes),
		out:     make([]float32, 1152*mp3Channels),
	}
	format := audio.Format{Channels: mp3Channels, SampleRate: decoder.SampleRate()}
	return newStream(MP3, format, duration, dec, r)
}

func (d *mp3Decoder) decode() ([]float32, error) {
	n, err := io.ReadFull(d.decoder, d.raw)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}

	n -= n % mp3FrameBytes
	samples := n / 2
	for i := 0; i < samples; i++ {
		d.out[i] = audio.FromInt16(int16(binary.LittleEndian.Uint16(d.raw[i*2:])))
	}
	return d.out[:samples], err
}
