// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Decodes Vorbis with jfreymuth/oggvorbis, which yields float samples
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

type vorbisDecoder struct {
	reader *oggvorbis.Reader
	buf    []float32
}

func newVorbis(r io.Reader) (*Stream, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vorbis: %w", err)
	}

	format := audio.Format{Channels: reader.Channels(), SampleRate: reader.SampleRate()}
	// Length is 0 unless the input can seek
	duration := audio.FramesToDuration(reader.Length(), format.SampleRate)

	dec := &vorbisDecoder{
		reader: reader,
		buf:    make([]float32, 4096*format.Channels),
	}
	return newStream(Vorbis, format, duration, dec, r)
}

func (d *vorbisDecoder) decode() ([]float32, error) {
	// Read returns a count of values, not frames
	n, err := d.reader.Read(d.buf)
	if n > 0 {
		return d.buf[:n], nil
	}
	return nil, err
}
