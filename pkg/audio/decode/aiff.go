// ABOUTME: AIFF audio decoder
// ABOUTME: Decodes uncompressed AIFF files through go-audio/aiff
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	"github.com/go-audio/aiff"
)

var errInvalidAIFF = errors.New("not a valid aiff file")

func newAIFF(r io.Reader) (*Stream, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading aiff data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	decoder := aiff.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return nil, errInvalidAIFF
	}
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("failed to read aiff header: %w", err)
	}

	format := audio.Format{Channels: int(decoder.NumChans), SampleRate: decoder.SampleRate}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("aiff: %w", err)
	}
	bitDepth := int(decoder.BitDepth)
	if !validBitDepth(bitDepth) {
		return nil, fmt.Errorf("unsupported aiff bit depth %d", bitDepth)
	}

	duration := audio.FramesToDuration(int64(decoder.NumSampleFrames), format.SampleRate)
	return newStream(AIFF, format, duration, newIntDecoder(decoder, format, bitDepth, false), r)
}
