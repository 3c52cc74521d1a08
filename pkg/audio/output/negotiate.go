// ABOUTME: Device and format negotiation
// ABOUTME: Walks ranked config and device candidates until a stream starts
package output

import (
	"fmt"
	"iter"
	"log"
	"slices"

	"github.com/Resonate-Protocol/playout/pkg/audio/mixer"
)

// Attempt describes one try at opening a stream
type Attempt struct {
	Device string
	Config SupportedStreamConfig
	Err    error
}

// Option configures TryDefault and TryFromDevice
type Option func(*options)

type options struct {
	onAttempt func(Attempt)
	onError   func(device string, err error)
}

// WithAttemptObserver reports every stream build attempt, failed or not
func WithAttemptObserver(fn func(Attempt)) Option {
	return func(o *options) {
		o.onAttempt = fn
	}
}

// WithErrorHandler receives errors raised by the backend after the stream
// started. The default handler logs them.
func WithErrorHandler(fn func(device string, err error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		onAttempt: func(Attempt) {},
		onError: func(device string, err error) {
			log.Printf("Audio stream error on %s: %v", device, err)
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Candidate is one stream config to try, or the query error that stands in
// for the configs that could not be listed.
type Candidate struct {
	Config SupportedStreamConfig
	Err    error
}

// Candidates yields the configs tried on dev, in order: the default config,
// then every ranked supported range at its candidate rates. Configs already
// yielded are skipped. Query failures are yielded as candidates carrying
// the error so the first failure of the device is preserved.
func Candidates(dev Device) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		seen := make(map[SupportedStreamConfig]bool)
		emit := func(cfg SupportedStreamConfig) bool {
			if seen[cfg] {
				return true
			}
			seen[cfg] = true
			return yield(Candidate{Config: cfg})
		}

		def, err := dev.DefaultOutputConfig()
		if err != nil {
			if !yield(Candidate{Err: &DefaultStreamConfigError{Device: dev.Name(), Err: err}}) {
				return
			}
		} else if !emit(def) {
			return
		}

		ranges, err := dev.SupportedOutputConfigs()
		if err != nil {
			yield(Candidate{Err: &SupportedStreamConfigsError{Device: dev.Name(), Err: err}})
			return
		}

		ranges = slices.Clone(ranges)
		RankRanges(ranges)
		for _, r := range ranges {
			for _, rate := range CandidateRates(r) {
				if !emit(r.WithSampleRate(rate)) {
					return
				}
			}
		}
	}
}

type deviceCandidate struct {
	device Device
	err    error
}

// deviceCandidates yields the host's default device followed by every other
// output device.
func deviceCandidates(host Host) iter.Seq[deviceCandidate] {
	return func(yield func(deviceCandidate) bool) {
		def, err := host.DefaultOutputDevice()
		if err != nil {
			if !yield(deviceCandidate{err: err}) {
				return
			}
		} else if !yield(deviceCandidate{device: def}) {
			return
		}

		devices, err := host.OutputDevices()
		if err != nil {
			yield(deviceCandidate{err: fmt.Errorf("failed to list output devices: %w", err)})
			return
		}
		for _, dev := range devices {
			if def != nil && dev.ID() == def.ID() {
				continue
			}
			if !yield(deviceCandidate{device: dev}) {
				return
			}
		}
	}
}

func negotiateDevice(dev Device, o *options) (*OutputStream, error) {
	none := fmt.Errorf("%w: %q reports no output configs", ErrNoDevice, dev.Name())
	return firstSuccess(Candidates(dev), func(c Candidate) (*OutputStream, error) {
		if c.Err != nil {
			log.Printf("Output device %s: %v", dev.Name(), c.Err)
			return nil, c.Err
		}

		s, err := openStream(dev, c.Config, o)
		o.onAttempt(Attempt{Device: dev.Name(), Config: c.Config, Err: err})
		if err != nil {
			log.Printf("Output config %s failed: %v", c.Config, err)
		}
		return s, err
	}, none)
}

func negotiateHost(host Host, o *options) (*OutputStream, error) {
	return firstSuccess(deviceCandidates(host), func(c deviceCandidate) (*OutputStream, error) {
		if c.err != nil {
			return nil, c.err
		}
		return negotiateDevice(c.device, o)
	}, ErrNoDevice)
}

// openStream builds a fresh mixer for cfg, opens the stream and starts it
func openStream(dev Device, cfg SupportedStreamConfig, o *options) (*OutputStream, error) {
	name := dev.Name()
	if err := cfg.AudioFormat().Validate(); err != nil {
		return nil, &BuildStreamError{Device: name, Config: cfg, Err: fmt.Errorf("%w: %v", ErrUnsupportedConfig, err)}
	}

	ctrl, mix := mixer.New(cfg.Channels, cfg.SampleRate)
	r := NewRenderer(mix, cfg.Format)

	st, err := dev.BuildOutputStream(cfg, r, func(err error) { o.onError(name, err) })
	if err != nil {
		return nil, &BuildStreamError{Device: name, Config: cfg, Err: err}
	}

	if err := st.Play(); err != nil {
		if closeErr := st.Close(); closeErr != nil {
			log.Printf("Warning: failed to close stream after start failure: %v", closeErr)
		}
		return nil, &PlayStreamError{Device: name, Err: err}
	}

	log.Printf("Audio output initialized: %s on %s", cfg, name)
	return newOutputStream(name, cfg, st, ctrl, mix), nil
}
