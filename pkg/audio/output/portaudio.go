//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using PortAudio
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
)

type portAudioHost struct {
	opts hostOptions
	once sync.Once
}

func newPortAudioHost(o hostOptions) (Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return &portAudioHost{opts: o}, nil
}

func (h *portAudioHost) Name() string { return "portaudio" }

func (h *portAudioHost) DefaultOutputDevice() (Device, error) {
	info, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	return &portAudioDevice{host: h, info: info}, nil
}

func (h *portAudioHost) OutputDevices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list portaudio devices: %w", err)
	}

	var devices []Device
	for _, info := range infos {
		if info.MaxOutputChannels > 0 {
			devices = append(devices, &portAudioDevice{host: h, info: info})
		}
	}
	return devices, nil
}

func (h *portAudioHost) Close() error {
	var err error
	h.once.Do(func() {
		err = portaudio.Terminate()
	})
	return err
}

type portAudioDevice struct {
	host *portAudioHost
	info *portaudio.DeviceInfo
}

func (d *portAudioDevice) ID() string {
	return fmt.Sprintf("%s:%s", d.info.HostApi.Name, d.info.Name)
}

func (d *portAudioDevice) Name() string { return d.info.Name }

func (d *portAudioDevice) DefaultOutputConfig() (SupportedStreamConfig, error) {
	return SupportedStreamConfig{
		Channels:   min(d.info.MaxOutputChannels, 2),
		SampleRate: int(d.info.DefaultSampleRate),
		Format:     FormatF32,
	}, nil
}

func (d *portAudioDevice) SupportedOutputConfigs() ([]SupportedConfigRange, error) {
	rates := []int{int(d.info.DefaultSampleRate), 48000, 44100}

	var ranges []SupportedConfigRange
	for _, ch := range []int{2, 1} {
		if ch > d.info.MaxOutputChannels {
			continue
		}
		for _, f := range []SampleFormat{FormatF32, FormatI16} {
			for _, rate := range rates {
				ranges = append(ranges, SupportedConfigRange{Channels: ch, MinSampleRate: rate, MaxSampleRate: rate, Format: f})
			}
		}
	}
	return ranges, nil
}

func (d *portAudioDevice) BuildOutputStream(cfg SupportedStreamConfig, r *Renderer, onError func(error)) (Stream, error) {
	params := portaudio.LowLatencyParameters(nil, d.info)
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.BufferFrames(d.host.opts.bufferDuration)

	var callback any
	switch cfg.Format {
	case FormatF32:
		callback = func(out []float32) { r.RenderFloat32(out) }
	case FormatI16:
		callback = func(out []int16) { r.RenderInt16(out) }
	default:
		return nil, fmt.Errorf("%w: portaudio output does not take %s", ErrUnsupportedConfig, cfg.Format)
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	return &portAudioStream{stream: stream}, nil
}

type portAudioStream struct {
	stream *portaudio.Stream
	once   sync.Once
}

func (s *portAudioStream) Play() error {
	return s.stream.Start()
}

func (s *portAudioStream) Close() error {
	var err error
	s.once.Do(func() {
		if stopErr := s.stream.Stop(); stopErr != nil {
			log.Printf("Warning: portaudio stop error: %v", stopErr)
		}
		err = s.stream.Close()
	})
	return err
}
