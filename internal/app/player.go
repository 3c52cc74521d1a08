// ABOUTME: Player application orchestration
// ABOUTME: Opens the configured output, plays tracks and reports their progress
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/playout/internal/observe"
	"github.com/Resonate-Protocol/playout/pkg/audio"
	"github.com/Resonate-Protocol/playout/pkg/audio/decode"
	"github.com/Resonate-Protocol/playout/pkg/audio/mixer"
	"github.com/Resonate-Protocol/playout/pkg/audio/output"
	"github.com/Resonate-Protocol/playout/pkg/audio/source"
	"go.opentelemetry.io/otel/metric"
)

// ErrNotStarted is returned when playing before Start or after Stop
var ErrNotStarted = errors.New("player not started")

// Config holds player configuration
type Config struct {
	// Backend names an output host; see output.HostNames
	Backend string
	// Device selects an output device by name; empty uses the default
	Device   string
	BufferMs int
	// Metrics is optional
	Metrics *observe.Metrics
}

// Progress is a snapshot of the current track's position
type Progress struct {
	Fraction float64
	Position time.Duration
	Duration time.Duration
}

type track struct {
	id   string
	name string
	src  *source.TrackedSource
}

// Player represents the playback application
type Player struct {
	config Config

	mu       sync.Mutex
	host     output.Host
	stream   *output.OutputStream
	handle   output.OutputStreamHandle
	current  *track
	stopOnce sync.Once
	stats    metric.Registration
}

// New creates a new player
func New(config Config) *Player {
	return &Player{config: config}
}

// Start opens the output device
func (p *Player) Start() error {
	host, err := output.NewHost(p.config.Backend,
		output.WithBufferDuration(time.Duration(p.config.BufferMs)*time.Millisecond))
	if err != nil {
		return fmt.Errorf("failed to create output host: %w", err)
	}
	return p.StartWithHost(host)
}

// StartWithHost opens an output stream on host. The player takes ownership
// of host and closes it on Stop.
func (p *Player) StartWithHost(host output.Host) error {
	var opts []output.Option
	if m := p.config.Metrics; m != nil {
		opts = append(opts, output.WithAttemptObserver(m.RecordAttempt))
		opts = append(opts, output.WithErrorHandler(func(device string, err error) {
			log.Printf("Audio stream error on %s: %v", device, err)
			m.RecordStreamError(device, err)
		}))
	}

	stream, handle, err := p.open(host, opts)
	if err != nil {
		host.Close()
		return err
	}

	p.mu.Lock()
	p.host = host
	p.stream = stream
	p.handle = handle
	p.mu.Unlock()

	if m := p.config.Metrics; m != nil {
		ctrl := stream.Controller()
		reg, err := m.ObserveMixer(ctrl.Stats)
		if err != nil {
			log.Printf("Warning: failed to observe mixer: %v", err)
		} else {
			p.stats = reg
		}
	}

	log.Printf("Player started on %s (%s)", stream.Device(), stream.Config())
	return nil
}

func (p *Player) open(host output.Host, opts []output.Option) (*output.OutputStream, output.OutputStreamHandle, error) {
	if p.config.Device == "" {
		return output.TryDefault(host, opts...)
	}

	devices, err := host.OutputDevices()
	if err != nil {
		return nil, output.OutputStreamHandle{}, fmt.Errorf("failed to list devices: %w", err)
	}
	for _, dev := range devices {
		if dev.Name() == p.config.Device || dev.ID() == p.config.Device {
			return output.TryFromDevice(dev, opts...)
		}
	}
	return nil, output.OutputStreamHandle{}, fmt.Errorf("%w: no device named %q on %s", output.ErrNoDevice, p.config.Device, host.Name())
}

// Handle returns the handle of the running stream
func (p *Player) Handle() output.OutputStreamHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// Stream returns the running output stream, or nil before Start
func (p *Player) Stream() *output.OutputStream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream
}

// Stats returns the mixer counters, or zero before Start
func (p *Player) Stats() mixer.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return mixer.Stats{}
	}
	return p.stream.Controller().Stats()
}

// Play decodes the file at path and plays it, returning a track ID
func (p *Player) Play(path string) (string, error) {
	if !p.started() {
		return "", ErrNotStarted
	}
	src, err := decode.Open(path)
	if err != nil {
		return "", &output.DecoderError{Name: path, Err: err}
	}
	id, err := p.PlaySource(path, src)
	if err != nil {
		audio.CloseSource(src)
		return "", err
	}
	return id, nil
}

// PlaySource plays src under name and makes it the current track
func (p *Player) PlaySource(name string, src audio.Source) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return "", ErrNotStarted
	}

	t := &track{id: uuid.New().String(), name: name, src: source.Tracked(src)}
	if err := p.handle.PlayRaw(t.src); err != nil {
		return "", err
	}
	p.current = t

	if m := p.config.Metrics; m != nil {
		m.TracksStarted.Add(context.Background(), 1)
	}
	log.Printf("Playing %s (track %s)", name, t.id)
	return t.id, nil
}

// Current returns the ID and name of the current track
func (p *Player) Current() (id, name string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return "", "", false
	}
	return p.current.id, p.current.name, true
}

// Progress reports the current track's position. It returns false when
// nothing has been played.
func (p *Player) Progress() (Progress, bool) {
	p.mu.Lock()
	t := p.current
	p.mu.Unlock()
	if t == nil {
		return Progress{}, false
	}

	pr := Progress{
		Position: t.src.Position(),
		Duration: t.src.TotalDuration(),
	}
	if pr.Duration > 0 {
		pr.Fraction = min(float64(pr.Position)/float64(pr.Duration), 1)
	}
	return pr, true
}

// Finished reports whether the current track has played out
func (p *Player) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil && p.current.src.Finished()
}

func (p *Player) started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream != nil
}

// Stop closes the output stream and the host
func (p *Player) Stop() error {
	var err error
	p.stopOnce.Do(func() {
		p.mu.Lock()
		stream, host := p.stream, p.host
		p.stream = nil
		p.handle = output.OutputStreamHandle{}
		p.mu.Unlock()

		if p.stats != nil {
			if uerr := p.stats.Unregister(); uerr != nil {
				log.Printf("Warning: failed to unregister mixer metrics: %v", uerr)
			}
		}
		if stream != nil {
			err = errors.Join(err, stream.Close())
		}
		if host != nil {
			err = errors.Join(err, host.Close())
		}
		log.Printf("Player stopped")
	})
	return err
}
