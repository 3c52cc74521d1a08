// ABOUTME: Raw PCM audio decoder
// ABOUTME: Decodes headerless 16-bit little-endian PCM
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/playout/pkg/audio"
)

type pcmDecoder struct {
	r   io.Reader
	raw []byte
	out []float32
}

// NewPCM decodes headerless signed 16-bit little-endian samples in the given
// format. The length is reported when r can seek.
func NewPCM(r io.Reader, format audio.Format) (*Stream, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("pcm: %w", err)
	}

	const frames = 4096
	frameBytes := 2 * format.Channels
	duration := audio.FramesToDuration(remaining(r)/int64(frameBytes), format.SampleRate)

	dec := &pcmDecoder{
		r:   r,
		raw: make([]byte, frames*frameBytes),
		out: make([]float32, frames*format.Channels),
	}
	return newStream(PCM, format, duration, dec, r)
}

// remaining returns the unread length of a seekable reader, or 0
func remaining(r io.Reader) int64 {
	s, ok := r.(io.Seeker)
	if !ok {
		return 0
	}
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0
	}
	if _, err := s.Seek(cur, io.SeekStart); err != nil {
		return 0
	}
	return end - cur
}

func (d *pcmDecoder) decode() ([]float32, error) {
	n, err := io.ReadFull(d.r, d.raw)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		d.out[i] = audio.FromInt16(int16(binary.LittleEndian.Uint16(d.raw[i*2:])))
	}
	return d.out[:samples], err
}
