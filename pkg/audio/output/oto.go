// ABOUTME: Oto-based audio output implementation
// ABOUTME: Exposes the single oto context as one device fed through a pull reader
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"
)

const (
	otoMinRate = 8000
	otoMaxRate = 192000
)

// oto allows one context per process, so it is shared by every otoHost
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoConfig SupportedStreamConfig
)

type otoHost struct {
	opts hostOptions
}

func newOtoHost(o hostOptions) Host {
	return &otoHost{opts: o}
}

func (h *otoHost) Name() string { return "oto" }

func (h *otoHost) DefaultOutputDevice() (Device, error) {
	return &otoDevice{host: h}, nil
}

func (h *otoHost) OutputDevices() ([]Device, error) {
	return []Device{&otoDevice{host: h}}, nil
}

// Close is a no-op: the oto context lives until the process exits
func (h *otoHost) Close() error { return nil }

type otoDevice struct {
	host *otoHost
}

func (d *otoDevice) ID() string   { return "oto:default" }
func (d *otoDevice) Name() string { return "oto default output" }

func (d *otoDevice) DefaultOutputConfig() (SupportedStreamConfig, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		return otoConfig, nil
	}
	return SupportedStreamConfig{Channels: 2, SampleRate: 48000, Format: FormatF32}, nil
}

func (d *otoDevice) SupportedOutputConfigs() ([]SupportedConfigRange, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		return []SupportedConfigRange{{
			Channels:      otoConfig.Channels,
			MinSampleRate: otoConfig.SampleRate,
			MaxSampleRate: otoConfig.SampleRate,
			Format:        otoConfig.Format,
		}}, nil
	}

	var ranges []SupportedConfigRange
	for _, ch := range []int{2, 1} {
		for _, f := range []SampleFormat{FormatF32, FormatI16} {
			ranges = append(ranges, SupportedConfigRange{Channels: ch, MinSampleRate: otoMinRate, MaxSampleRate: otoMaxRate, Format: f})
		}
	}
	return ranges, nil
}

// context returns the process context, creating it for cfg on first use
func (d *otoDevice) context(cfg SupportedStreamConfig) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoConfig != cfg {
			return nil, fmt.Errorf("%w: oto context already running at %s", ErrUnsupportedConfig, otoConfig)
		}
		return otoCtx, nil
	}

	var format oto.Format
	switch cfg.Format {
	case FormatF32:
		format = oto.FormatFloat32LE
	case FormatI16:
		format = oto.FormatSignedInt16LE
	default:
		return nil, fmt.Errorf("%w: oto has no %s format", ErrUnsupportedConfig, cfg.Format)
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       format,
		BufferSize:   d.host.opts.bufferDuration,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoCtx = ctx
	otoConfig = cfg
	return ctx, nil
}

func (d *otoDevice) BuildOutputStream(cfg SupportedStreamConfig, r *Renderer, onError func(error)) (Stream, error) {
	ctx, err := d.context(cfg)
	if err != nil {
		return nil, err
	}
	return &otoStream{player: ctx.NewPlayer(r.Reader()), onError: onError}, nil
}

type otoStream struct {
	player  *oto.Player
	onError func(error)
	once    sync.Once
}

func (s *otoStream) Play() error {
	s.player.Play()
	if err := s.player.Err(); err != nil {
		return fmt.Errorf("oto player failed to start: %w", err)
	}
	return nil
}

func (s *otoStream) Close() error {
	var err error
	s.once.Do(func() {
		if perr := s.player.Err(); perr != nil {
			s.onError(perr)
		}
		if err = s.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
	})
	return err
}
