// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes Opus files through libopusfile, always at 48 kHz
package decode

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// libopusfile always decodes at this rate
const opusSampleRate = 48000

// channel count offset inside the OpusHead packet
const opusHeadChannels = 9

var errNoOpusHead = errors.New("no OpusHead packet in first ogg page")

type opusDecoder struct {
	stream   *opus.Stream
	channels int
	buf      []float32
}

// opusChannels reads the channel count from the identification header
func opusChannels(head []byte) (int, error) {
	i := bytes.Index(head, []byte("OpusHead"))
	if i < 0 || i+opusHeadChannels >= len(head) {
		return 0, errNoOpusHead
	}
	return int(head[i+opusHeadChannels]), nil
}

func newOpus(r io.Reader) (*Stream, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	head, _ := br.Peek(512)
	channels, err := opusChannels(head)
	if err != nil {
		return nil, fmt.Errorf("failed to decode opus: %w", err)
	}
	if channels != 1 && channels != 2 {
		// libopusfile downmixes anything wider to stereo
		channels = 2
	}

	stream, err := opus.NewStream(br)
	if err != nil {
		return nil, fmt.Errorf("failed to open opus stream: %w", err)
	}

	dec := &opusDecoder{
		stream:   stream,
		channels: channels,
		buf:      make([]float32, 5760*channels),
	}
	format := audio.Format{Channels: channels, SampleRate: opusSampleRate}
	return newStream(Opus, format, 0, dec, r)
}

func (d *opusDecoder) decode() ([]float32, error) {
	// ReadFloat32 returns samples per channel
	n, err := d.stream.ReadFloat32(d.buf)
	if n > 0 {
		return d.buf[:n*d.channels], nil
	}
	return nil, err
}

func (d *opusDecoder) Close() error {
	return d.stream.Close()
}
