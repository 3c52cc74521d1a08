// ABOUTME: WAV audio decoder
// ABOUTME: Decodes integer PCM WAV files through go-audio/wav
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	"github.com/go-audio/wav"
)

// WAV format tags accepted by the decoder
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

var errInvalidWAV = errors.New("not a valid wav file")

func newWAV(r io.Reader) (*Stream, error) {
	// go-audio needs to seek between chunks
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading wav data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	decoder := wav.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return nil, errInvalidWAV
	}
	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("unsupported wav format tag %d", decoder.WavAudioFormat)
	}
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find wav data: %w", err)
	}

	format := audio.Format{Channels: int(decoder.NumChans), SampleRate: int(decoder.SampleRate)}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	bitDepth := int(decoder.BitDepth)
	if !validBitDepth(bitDepth) {
		return nil, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}

	frameBytes := int64(format.Channels * bitDepth / 8)
	duration := audio.FramesToDuration(decoder.PCMLen()/frameBytes, format.SampleRate)

	return newStream(WAV, format, duration, newIntDecoder(decoder, format, bitDepth, true), r)
}
