// ABOUTME: Null audio output for headless machines and tests
// ABOUTME: Drains the renderer at real-time pace and discards the audio
package output

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// NullHost has one device that consumes audio on a ticker without playing it
type NullHost struct {
	device *NullDevice
}

// NewNullHost creates a null host whose device renders one period per tick
func NewNullHost(period time.Duration) *NullHost {
	if period <= 0 {
		period = DefaultBufferDuration
	}
	return &NullHost{device: &NullDevice{period: period}}
}

func (h *NullHost) Name() string { return "null" }

func (h *NullHost) DefaultOutputDevice() (Device, error) {
	return h.device, nil
}

func (h *NullHost) OutputDevices() ([]Device, error) {
	return []Device{h.device}, nil
}

func (h *NullHost) Close() error { return nil }

// NullDevice accepts every valid config
type NullDevice struct {
	period   time.Duration
	rendered atomic.Int64
}

func (d *NullDevice) ID() string   { return "null" }
func (d *NullDevice) Name() string { return "null output" }

func (d *NullDevice) DefaultOutputConfig() (SupportedStreamConfig, error) {
	return SupportedStreamConfig{Channels: 2, SampleRate: 48000, Format: FormatF32}, nil
}

func (d *NullDevice) SupportedOutputConfigs() ([]SupportedConfigRange, error) {
	var ranges []SupportedConfigRange
	for _, ch := range []int{2, 1} {
		for _, f := range []SampleFormat{FormatF32, FormatI16, FormatU16} {
			ranges = append(ranges, SupportedConfigRange{Channels: ch, MinSampleRate: 8000, MaxSampleRate: 192000, Format: f})
		}
	}
	return ranges, nil
}

// Rendered returns the number of frames consumed by all streams of the device
func (d *NullDevice) Rendered() int64 {
	return d.rendered.Load()
}

func (d *NullDevice) BuildOutputStream(cfg SupportedStreamConfig, r *Renderer, onError func(error)) (Stream, error) {
	frames := max(cfg.BufferFrames(d.period), 1)
	return &nullStream{
		device:   d,
		renderer: r,
		period:   d.period,
		frames:   frames,
		buf:      make([]byte, frames*cfg.Channels*cfg.Format.SampleSize()),
		stop:     make(chan struct{}),
	}, nil
}

var errStreamClosed = errors.New("stream closed")

type nullStream struct {
	device   *NullDevice
	renderer *Renderer
	period   time.Duration
	frames   int
	buf      []byte

	mu      sync.Mutex
	started bool
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func (s *nullStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errStreamClosed
	}
	if s.started {
		return nil
	}
	s.started = true

	s.wg.Add(1)
	go s.loop()
	return nil
}

func (s *nullStream) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.renderer.Render(s.buf)
			s.device.rendered.Add(int64(s.frames))
		}
	}
}

func (s *nullStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
