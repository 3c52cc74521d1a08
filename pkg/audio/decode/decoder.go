// ABOUTME: Codec selection and the shared decoded-stream source
// ABOUTME: Maps file extensions to codecs and adapts block decoders to audio.Source
package decode

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	"github.com/Resonate-Protocol/playout/pkg/audio/source"
)

// Codec names an encoded audio format
type Codec string

const (
	MP3    Codec = "mp3"
	FLAC   Codec = "flac"
	Vorbis Codec = "vorbis"
	Opus   Codec = "opus"
	WAV    Codec = "wav"
	AIFF   Codec = "aiff"
	PCM    Codec = "pcm"

	// Ogg is resolved to Vorbis or Opus by looking at the first page
	Ogg Codec = "ogg"
)

// ErrUnsupportedCodec is returned for codecs and extensions with no decoder
var ErrUnsupportedCodec = errors.New("unsupported codec")

// DefaultPCMFormat is assumed for raw PCM input
var DefaultPCMFormat = audio.Format{Channels: 2, SampleRate: 44100}

// maxEmptyBlocks bounds how often a decoder may return no data without an error
const maxEmptyBlocks = 64

// CodecFor returns the codec implied by a file extension
func CodecFor(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return MP3, nil
	case ".flac":
		return FLAC, nil
	case ".ogg", ".oga":
		return Ogg, nil
	case ".opus":
		return Opus, nil
	case ".wav", ".wave":
		return WAV, nil
	case ".aif", ".aiff":
		return AIFF, nil
	case ".pcm", ".raw":
		return PCM, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCodec, filepath.Ext(path))
	}
}

// Open decodes the file at path, choosing the codec from its extension.
// The file is closed when the returned source is closed.
func Open(path string) (audio.Source, error) {
	codec, err := CodecFor(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	src, err := New(f, codec)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// New decodes r with the given codec and buffers ahead of playback.
// If r is an io.Closer it is closed with the source.
func New(r io.Reader, codec Codec) (audio.Source, error) {
	s, err := Decode(r, codec)
	if err != nil {
		return nil, err
	}
	return source.Buffered(s, source.DefaultChunkFrames, source.DefaultDepth), nil
}

// Decode decodes r with the given codec without buffering. Decoding happens
// on the goroutine that pulls samples.
func Decode(r io.Reader, codec Codec) (*Stream, error) {
	if codec == Ogg {
		br := bufio.NewReader(r)
		codec = sniffOgg(br)
		r = readCloser{Reader: br, src: r}
	}

	switch codec {
	case MP3:
		return newMP3(r)
	case FLAC:
		return newFLAC(r)
	case Vorbis:
		return newVorbis(r)
	case Opus:
		return newOpus(r)
	case WAV:
		return newWAV(r)
	case AIFF:
		return newAIFF(r)
	case PCM:
		return NewPCM(r, DefaultPCMFormat)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, string(codec))
	}
}

// sniffOgg reports Opus when the first Ogg page carries an OpusHead packet
func sniffOgg(br *bufio.Reader) Codec {
	head, _ := br.Peek(512)
	if bytes.Contains(head, []byte("OpusHead")) {
		return Opus
	}
	return Vorbis
}

// readCloser keeps the underlying reader's Close after wrapping it
type readCloser struct {
	io.Reader
	src io.Reader
}

func (r readCloser) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// blockDecoder produces the next block of interleaved samples; io.EOF ends it
type blockDecoder interface {
	decode() ([]float32, error)
}

// Stream is an audio.Source backed by a codec decoder
type Stream struct {
	codec    Codec
	format   audio.Format
	duration time.Duration
	dec      blockDecoder
	closers  []io.Closer

	block []float32
	pos   int
	done  bool
	err   error
}

func newStream(codec Codec, format audio.Format, duration time.Duration, dec blockDecoder, r io.Reader) (*Stream, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", codec, err)
	}

	s := &Stream{
		codec:    codec,
		format:   format,
		duration: duration,
		dec:      dec,
	}
	if c, ok := dec.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	if c, ok := r.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	return s, nil
}

func (s *Stream) Channels() int   { return s.format.Channels }
func (s *Stream) SampleRate() int { return s.format.SampleRate }

// Codec returns the codec being decoded
func (s *Stream) Codec() Codec { return s.codec }

func (s *Stream) Next() (float32, bool) {
	empty := 0
	for s.pos >= len(s.block) {
		if s.done {
			return 0, false
		}

		block, err := s.dec.decode()
		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				s.err = err
				log.Printf("%s decode error: %v", s.codec, err)
			}
		}
		if len(block) == 0 {
			empty++
			if !s.done && empty >= maxEmptyBlocks {
				s.done = true
			}
			continue
		}

		s.block = block[:len(block)-len(block)%s.format.Channels]
		s.pos = 0
	}

	v := s.block[s.pos]
	s.pos++
	return v, true
}

// Err returns the decode error that ended the stream early, if any
func (s *Stream) Err() error {
	return s.err
}

// TotalDuration returns the stream length, or 0 when the container does not say
func (s *Stream) TotalDuration() time.Duration {
	return s.duration
}

// Close releases the decoder and the underlying reader
func (s *Stream) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	s.done = true
	return errors.Join(errs...)
}
