// ABOUTME: Tests for codec selection and the decoded stream source
// ABOUTME: Uses generated WAV fixtures and fake block decoders
package decode

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	"github.com/Resonate-Protocol/playout/pkg/audio/source"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		path    string
		codec   Codec
		wantErr bool
	}{
		{"song.mp3", MP3, false},
		{"SONG.MP3", MP3, false},
		{"a/b/track.flac", FLAC, false},
		{"track.ogg", Ogg, false},
		{"track.oga", Ogg, false},
		{"track.opus", Opus, false},
		{"take.wav", WAV, false},
		{"loop.aif", AIFF, false},
		{"loop.AIFF", AIFF, false},
		{"dump.raw", PCM, false},
		{"notes.txt", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			codec, err := CodecFor(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedCodec) {
					t.Errorf("expected ErrUnsupportedCodec, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if codec != tt.codec {
				t.Errorf("expected %s, got %s", tt.codec, codec)
			}
		})
	}
}

func TestDecodeUnknownCodec(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil), Codec("midi"))
	if !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}

func TestDecodeInvalidInput(t *testing.T) {
	garbage := []byte("This is definitely not an audio file, just some text padding it out")

	for _, codec := range []Codec{MP3, FLAC, Vorbis, Opus, WAV, AIFF} {
		t.Run(string(codec), func(t *testing.T) {
			if _, err := Decode(bytes.NewReader(garbage), codec); err == nil {
				t.Error("expected error for garbage input")
			}
			if _, err := Decode(bytes.NewReader(nil), codec); err == nil {
				t.Error("expected error for empty input")
			}
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.flac"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

// writeWAV encodes interleaved 16-bit samples into a WAV file
func writeWAV(t *testing.T, channels, rate int, samples []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func rampInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = (i*97)%65536 - 32768
	}
	return out
}

func TestDecodeWAV(t *testing.T) {
	samples := rampInts(2 * 800)
	path := writeWAV(t, 2, 8000, samples)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	stream, err := Decode(f, WAV)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	defer stream.Close()

	if stream.Channels() != 2 || stream.SampleRate() != 8000 {
		t.Errorf("unexpected format %v", audio.FormatOf(stream))
	}
	if got := stream.TotalDuration(); got != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", got)
	}

	got := source.Collect(stream, len(samples)+10)
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i, v := range samples {
		if !near(got[i], audio.FromInt(int32(v), 16)) {
			t.Fatalf("sample %d: expected %f, got %f", i, audio.FromInt(int32(v), 16), got[i])
		}
	}
	if stream.Err() != nil {
		t.Errorf("unexpected decode error: %v", stream.Err())
	}
}

func TestDecodeAIFF(t *testing.T) {
	samples := rampInts(800)

	path := filepath.Join(t.TempDir(), "fixture.aiff")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := aiff.NewEncoder(f, 8000, 16, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           samples,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	f.Close()

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer audio.CloseSource(src)

	if audio.FormatOf(src) != (audio.Format{Channels: 1, SampleRate: 8000}) {
		t.Errorf("unexpected format %v", audio.FormatOf(src))
	}
	if got := audio.TotalDuration(src); got != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", got)
	}

	got := source.Collect(src, len(samples)+10)
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i, v := range samples {
		if !near(got[i], audio.FromInt(int32(v), 16)) {
			t.Fatalf("sample %d: expected %f, got %f", i, audio.FromInt(int32(v), 16), got[i])
		}
	}
}

func TestOpenWAVBuffered(t *testing.T) {
	samples := rampInts(2 * 800)
	path := writeWAV(t, 2, 8000, samples)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer audio.CloseSource(src)

	if audio.FormatOf(src) != (audio.Format{Channels: 2, SampleRate: 8000}) {
		t.Errorf("unexpected format %v", audio.FormatOf(src))
	}
	if got := audio.TotalDuration(src); got != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", got)
	}

	// the whole file fits in the first chunk, which is decoded before Open returns
	got := source.Collect(src, len(samples))
	for i, v := range samples {
		if !near(got[i], audio.FromInt(int32(v), 16)) {
			t.Fatalf("sample %d: expected %f, got %f", i, audio.FromInt(int32(v), 16), got[i])
		}
	}
}

func TestSniffOgg(t *testing.T) {
	opusPage := append([]byte("OggS\x00\x02"), make([]byte, 22)...)
	opusPage = append(opusPage, []byte("OpusHead\x01\x02\x38\x01")...)

	if got := sniffOgg(bufio.NewReader(bytes.NewReader(opusPage))); got != Opus {
		t.Errorf("expected opus, got %s", got)
	}

	vorbisPage := append([]byte("OggS\x00\x02"), make([]byte, 22)...)
	vorbisPage = append(vorbisPage, []byte("\x01vorbis")...)
	if got := sniffOgg(bufio.NewReader(bytes.NewReader(vorbisPage))); got != Vorbis {
		t.Errorf("expected vorbis, got %s", got)
	}
}

func TestOpusChannels(t *testing.T) {
	head := append([]byte("OggS"), []byte("OpusHead\x01\x02\x38\x01")...)
	ch, err := opusChannels(head)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch != 2 {
		t.Errorf("expected 2 channels, got %d", ch)
	}

	if _, err := opusChannels([]byte("OggS OpusHe")); err == nil {
		t.Error("expected error for truncated header")
	}
}

// scriptedDecoder returns fixed blocks followed by a final error
type scriptedDecoder struct {
	blocks [][]float32
	err    error
	calls  int
}

func (d *scriptedDecoder) decode() ([]float32, error) {
	d.calls++
	if len(d.blocks) == 0 {
		return nil, d.err
	}
	b := d.blocks[0]
	d.blocks = d.blocks[1:]
	return b, nil
}

func TestStreamEndsOnDecodeError(t *testing.T) {
	boom := errors.New("corrupt frame")
	dec := &scriptedDecoder{
		blocks: [][]float32{{0.1, 0.2}, {}, {0.3, 0.4}},
		err:    boom,
	}
	s, err := newStream(FLAC, audio.Format{Channels: 2, SampleRate: 44100}, 0, dec, nil)
	if err != nil {
		t.Fatalf("newStream: %v", err)
	}

	got := source.Collect(s, 10)
	if len(got) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(got))
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("expected decode error, got %v", s.Err())
	}
	if _, ok := s.Next(); ok {
		t.Error("stream produced samples after ending")
	}
}

func TestStreamEOFIsNotAnError(t *testing.T) {
	dec := &scriptedDecoder{blocks: [][]float32{{0.5}}, err: io.EOF}
	s, _ := newStream(PCM, audio.Format{Channels: 1, SampleRate: 8000}, 0, dec, nil)

	source.Collect(s, 10)
	if s.Err() != nil {
		t.Errorf("expected no error at EOF, got %v", s.Err())
	}
}

func TestStreamGivesUpOnEmptyBlocks(t *testing.T) {
	dec := &scriptedDecoder{}
	for i := 0; i < 1000; i++ {
		dec.blocks = append(dec.blocks, []float32{})
	}
	s, _ := newStream(PCM, audio.Format{Channels: 1, SampleRate: 8000}, 0, dec, nil)

	if _, ok := s.Next(); ok {
		t.Fatal("expected no samples")
	}
	if dec.calls != maxEmptyBlocks {
		t.Errorf("expected %d decode calls, got %d", maxEmptyBlocks, dec.calls)
	}
}

func TestStreamRejectsInvalidFormat(t *testing.T) {
	if _, err := newStream(PCM, audio.Format{Channels: 0, SampleRate: 8000}, 0, &scriptedDecoder{}, nil); err == nil {
		t.Error("expected error for zero channels")
	}
}

type closeCounter struct {
	io.Reader
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestStreamClosesReader(t *testing.T) {
	r := &closeCounter{Reader: bytes.NewReader([]byte{0, 0, 0, 0})}
	s, err := NewPCM(r, DefaultPCMFormat)
	if err != nil {
		t.Fatalf("NewPCM: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if r.closed != 1 {
		t.Errorf("expected reader closed once, got %d", r.closed)
	}
}
