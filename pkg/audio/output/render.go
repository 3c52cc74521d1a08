// ABOUTME: Fill function shared by all backends
// ABOUTME: Encodes mixer output into device buffers without blocking or allocating
package output

import (
	"encoding/binary"
	"math"

	"github.com/Resonate-Protocol/playout/pkg/audio"
)

// Renderer pulls samples from an endless source (normally a mixer) and
// encodes them for the device. It is called from the audio callback and
// must be driven by one goroutine at a time.
type Renderer struct {
	src    audio.Source
	format SampleFormat
}

// NewRenderer creates a renderer encoding src as format
func NewRenderer(src audio.Source, format SampleFormat) *Renderer {
	return &Renderer{src: src, format: format}
}

// Format returns the encoding the renderer produces
func (r *Renderer) Format() SampleFormat {
	return r.format
}

// Channels returns the interleaved channel count of the rendered stream
func (r *Renderer) Channels() int {
	return r.src.Channels()
}

func (r *Renderer) next() float32 {
	v, ok := r.src.Next()
	if !ok {
		return 0
	}
	return v
}

// Render fills out with little-endian samples in the renderer's format.
// Trailing bytes that do not hold a whole sample are zeroed.
func (r *Renderer) Render(out []byte) {
	size := r.format.SampleSize()
	n := len(out) / size

	switch r.format {
	case FormatF32:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(r.next()))
		}
	case FormatI16:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.ToInt16(r.next())))
		}
	case FormatU16:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(out[i*2:], audio.ToUint16(r.next()))
		}
	}
	clear(out[n*size:])
}

// RenderFloat32 fills out with normalized samples
func (r *Renderer) RenderFloat32(out []float32) {
	for i := range out {
		out[i] = r.next()
	}
}

// RenderInt16 fills out with signed 16-bit samples
func (r *Renderer) RenderInt16(out []int16) {
	for i := range out {
		out[i] = audio.ToInt16(r.next())
	}
}

// RenderUint16 fills out with unsigned 16-bit samples
func (r *Renderer) RenderUint16(out []uint16) {
	for i := range out {
		out[i] = audio.ToUint16(r.next())
	}
}

// Reader returns an io.Reader view of the renderer for pull-model backends.
// Reads never fail and never end.
func (r *Renderer) Reader() *RenderReader {
	return &RenderReader{r: r}
}

// RenderReader adapts a Renderer to io.Reader
type RenderReader struct {
	r *Renderer
}

func (rr *RenderReader) Read(p []byte) (int, error) {
	rr.r.Render(p)
	return len(p), nil
}
