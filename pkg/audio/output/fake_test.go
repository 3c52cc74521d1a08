// ABOUTME: Fake host and device used by output tests
// ABOUTME: Devices accept or reject configs according to per-test rules
package output

import (
	"errors"
	"sync"
)

var errRejected = errors.New("config rejected by device")

type fakeHost struct {
	devices    []*fakeDevice
	defaultIdx int
	defaultErr error
	listErr    error
}

func (h *fakeHost) Name() string { return "fake" }

func (h *fakeHost) DefaultOutputDevice() (Device, error) {
	if h.defaultErr != nil {
		return nil, h.defaultErr
	}
	if len(h.devices) == 0 {
		return nil, ErrNoDevice
	}
	return h.devices[h.defaultIdx], nil
}

func (h *fakeHost) OutputDevices() ([]Device, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	out := make([]Device, len(h.devices))
	for i, d := range h.devices {
		out[i] = d
	}
	return out, nil
}

func (h *fakeHost) Close() error { return nil }

type fakeDevice struct {
	id         string
	name       string
	defaultCfg SupportedStreamConfig
	defaultErr error
	ranges     []SupportedConfigRange
	rangesErr  error

	// accept decides whether a config builds; nil accepts everything
	accept  func(SupportedStreamConfig) bool
	playErr error

	mu      sync.Mutex
	built   []SupportedStreamConfig
	streams []*fakeStream
}

func (d *fakeDevice) ID() string   { return d.id }
func (d *fakeDevice) Name() string { return d.name }

func (d *fakeDevice) DefaultOutputConfig() (SupportedStreamConfig, error) {
	return d.defaultCfg, d.defaultErr
}

func (d *fakeDevice) SupportedOutputConfigs() ([]SupportedConfigRange, error) {
	return d.ranges, d.rangesErr
}

func (d *fakeDevice) BuildOutputStream(cfg SupportedStreamConfig, r *Renderer, onError func(error)) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.built = append(d.built, cfg)
	if d.accept != nil && !d.accept(cfg) {
		return nil, errRejected
	}
	s := &fakeStream{renderer: r, playErr: d.playErr, onError: onError}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) attempts() []SupportedStreamConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SupportedStreamConfig(nil), d.built...)
}

type fakeStream struct {
	renderer *Renderer
	playErr  error
	onError  func(error)

	playing bool
	closed  int
}

func (s *fakeStream) Play() error {
	if s.playErr != nil {
		return s.playErr
	}
	s.playing = true
	return nil
}

func (s *fakeStream) Close() error {
	s.closed++
	s.playing = false
	return nil
}

func stereoF32(rate int) SupportedStreamConfig {
	return SupportedStreamConfig{Channels: 2, SampleRate: rate, Format: FormatF32}
}

func rejectAll(SupportedStreamConfig) bool { return false }
