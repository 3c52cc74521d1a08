// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio through malgo to enumerate and drive playback devices
package output

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// miniaudio reports a sample rate of 0 for devices that resample internally
const (
	malgoMinRate = 8000
	malgoMaxRate = 384000
)

var errDeviceStopped = errors.New("device stopped unexpectedly")

type malgoHost struct {
	ctx  *malgo.AllocatedContext
	opts hostOptions
	mu   sync.Mutex
}

func newMalgoHost(o hostOptions) (Host, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Printf("[malgo] %s", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	return &malgoHost{ctx: ctx, opts: o}, nil
}

func (h *malgoHost) Name() string { return "malgo" }

func (h *malgoHost) OutputDevices() ([]Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	infos, err := h.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, &malgoDevice{host: h, info: info})
	}
	return devices, nil
}

func (h *malgoHost) DefaultOutputDevice() (Device, error) {
	devices, err := h.OutputDevices()
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, ErrNoDevice
	}
	for _, dev := range devices {
		if dev.(*malgoDevice).info.IsDefault != 0 {
			return dev, nil
		}
	}
	return devices[0], nil
}

func (h *malgoHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx == nil {
		return nil
	}
	if err := h.ctx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	h.ctx.Free()
	h.ctx = nil
	return nil
}

type malgoDevice struct {
	host *malgoHost
	info malgo.DeviceInfo
}

func (d *malgoDevice) ID() string   { return d.info.ID.String() }
func (d *malgoDevice) Name() string { return d.info.Name() }

// nativeFormats asks the backend for the formats the device handles natively
func (d *malgoDevice) nativeFormats() ([]malgo.DataFormat, error) {
	d.host.mu.Lock()
	defer d.host.mu.Unlock()

	info, err := d.host.ctx.DeviceInfo(malgo.Playback, d.info.ID, malgo.Shared)
	if err != nil {
		return nil, err
	}
	return info.Formats, nil
}

// sampleFormat maps a miniaudio format to the closest renderer format
func sampleFormat(f malgo.FormatType) SampleFormat {
	if f == malgo.FormatS16 {
		return FormatI16
	}
	return FormatF32
}

func (d *malgoDevice) DefaultOutputConfig() (SupportedStreamConfig, error) {
	formats, err := d.nativeFormats()
	if err != nil {
		return SupportedStreamConfig{}, err
	}

	cfg := SupportedStreamConfig{Channels: 2, SampleRate: 48000, Format: FormatF32}
	if len(formats) > 0 {
		native := formats[0]
		cfg.Format = sampleFormat(native.Format)
		if native.Channels > 0 {
			cfg.Channels = int(native.Channels)
		}
		if native.SampleRate > 0 {
			cfg.SampleRate = int(native.SampleRate)
		}
	}
	return cfg, nil
}

func (d *malgoDevice) SupportedOutputConfigs() ([]SupportedConfigRange, error) {
	formats, err := d.nativeFormats()
	if err != nil {
		return nil, err
	}

	seen := make(map[SupportedConfigRange]bool)
	var ranges []SupportedConfigRange
	add := func(r SupportedConfigRange) {
		if !seen[r] {
			seen[r] = true
			ranges = append(ranges, r)
		}
	}

	for _, f := range formats {
		minRate, maxRate := malgoMinRate, malgoMaxRate
		if f.SampleRate > 0 {
			minRate, maxRate = int(f.SampleRate), int(f.SampleRate)
		}
		channels := []int{int(f.Channels)}
		if f.Channels == 0 {
			channels = []int{2, 1}
		}
		for _, ch := range channels {
			add(SupportedConfigRange{Channels: ch, MinSampleRate: minRate, MaxSampleRate: maxRate, Format: sampleFormat(f.Format)})
		}
	}

	// miniaudio converts anything it is given, so the common layouts always work
	for _, ch := range []int{2, 1} {
		for _, f := range []SampleFormat{FormatF32, FormatI16} {
			add(SupportedConfigRange{Channels: ch, MinSampleRate: malgoMinRate, MaxSampleRate: malgoMaxRate, Format: f})
		}
	}
	return ranges, nil
}

func (d *malgoDevice) BuildOutputStream(cfg SupportedStreamConfig, r *Renderer, onError func(error)) (Stream, error) {
	var format malgo.FormatType
	switch cfg.Format {
	case FormatF32:
		format = malgo.FormatF32
	case FormatI16:
		format = malgo.FormatS16
	default:
		return nil, fmt.Errorf("%w: miniaudio has no %s format", ErrUnsupportedConfig, cfg.Format)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.Playback.DeviceID = d.info.ID.Pointer()
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BufferFrames(d.host.opts.bufferDuration))
	deviceConfig.Alsa.NoMMap = 1

	s := &malgoStream{}
	frameBytes := cfg.Channels * cfg.Format.SampleSize()
	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			n := min(int(frameCount)*frameBytes, len(pOutput))
			r.Render(pOutput[:n])
		},
		Stop: func() {
			if !s.closing.Load() {
				onError(errDeviceStopped)
			}
		},
	}

	d.host.mu.Lock()
	device, err := malgo.InitDevice(d.host.ctx.Context, deviceConfig, callbacks)
	d.host.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	s.device = device
	return s, nil
}

type malgoStream struct {
	device  *malgo.Device
	closing atomic.Bool
	once    sync.Once
}

func (s *malgoStream) Play() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	s.once.Do(func() {
		s.closing.Store(true)
		if s.device.IsStarted() {
			if err := s.device.Stop(); err != nil {
				log.Printf("Warning: device stop error: %v", err)
			}
		}
		s.device.Uninit()
	})
	return nil
}
