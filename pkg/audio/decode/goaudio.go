// ABOUTME: Shared block decoding for go-audio based decoders
// ABOUTME: Converts go-audio integer buffers to normalized samples
package decode

import (
	"io"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	goaudio "github.com/go-audio/audio"
)

// pcmReader is the block reader shared by the go-audio decoders
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// intDecoder converts go-audio integer blocks to normalized samples
type intDecoder struct {
	pcm      pcmReader
	bitDepth int
	// unsigned8 is set for WAV, where 8-bit samples are unsigned
	unsigned8 bool
	buf       *goaudio.IntBuffer
	out       []float32
}

func newIntDecoder(pcm pcmReader, format audio.Format, bitDepth int, unsigned8 bool) *intDecoder {
	return &intDecoder{
		pcm:       pcm,
		bitDepth:  bitDepth,
		unsigned8: unsigned8,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			Data:           make([]int, 4096*format.Channels),
			SourceBitDepth: bitDepth,
		},
		out: make([]float32, 4096*format.Channels),
	}
}

func validBitDepth(bitDepth int) bool {
	return bitDepth > 0 && bitDepth%8 == 0 && bitDepth <= 32
}

func (d *intDecoder) decode() ([]float32, error) {
	n, err := d.pcm.PCMBuffer(d.buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}

	for i, v := range d.buf.Data[:n] {
		if d.unsigned8 && d.bitDepth == 8 {
			v -= 128
		}
		d.out[i] = audio.FromInt(int32(v), d.bitDepth)
	}
	return d.out[:n], nil
}
