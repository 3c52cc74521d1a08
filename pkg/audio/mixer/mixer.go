// ABOUTME: Mixer and Controller implementation
// ABOUTME: Hands new sources to the audio callback through a TryLock guarded pending list
package mixer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	"github.com/Resonate-Protocol/playout/pkg/audio/resample"
)

var (
	// ErrInvalidSource is returned for sources with no channels or no sample rate
	ErrInvalidSource = errors.New("invalid source format")
	// ErrClosed is returned when adding to a mixer that has been closed
	ErrClosed = errors.New("mixer closed")
)

// Stats is a snapshot of mixer counters
type Stats struct {
	Added    uint64 // sources registered through the controller
	Finished uint64 // sources removed after exhausting
	Active   int64  // sources currently being mixed
	Frames   uint64 // output frames produced
}

// shared is the state reachable from both halves
type shared struct {
	format audio.Format

	mu         sync.Mutex
	pending    []audio.Source
	hasPending atomic.Bool
	closed     atomic.Bool

	added    atomic.Uint64
	finished atomic.Uint64
	active   atomic.Int64
	frames   atomic.Uint64
}

// Controller registers sources with a Mixer. It is safe for concurrent use.
type Controller struct {
	s *shared
}

// Mixer produces the summed output. It must be driven by a single goroutine.
type Mixer struct {
	s       *shared
	sources []audio.Source
	slot    int
}

// New creates a mixer producing channels-wide frames at sampleRate,
// together with the controller that feeds it.
func New(channels, sampleRate int) (*Controller, *Mixer) {
	s := &shared{format: audio.Format{Channels: channels, SampleRate: sampleRate}}
	return &Controller{s: s}, &Mixer{s: s}
}

// Format returns the mixer output format
func (c *Controller) Format() audio.Format {
	return c.s.format
}

// Add registers src for mixing. The source is converted to the mixer format
// here, on the caller's goroutine, and joins the output at the next frame
// boundary the audio callback reaches. Add takes ownership of src: if it
// returns an error, src has already been closed.
func (c *Controller) Add(src audio.Source) error {
	if err := audio.FormatOf(src).Validate(); err != nil {
		_ = audio.CloseSource(src)
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	converted := resample.Uniform(src, c.s.format)

	c.s.mu.Lock()
	if c.s.closed.Load() {
		c.s.mu.Unlock()
		_ = audio.CloseSource(converted)
		return ErrClosed
	}
	c.s.pending = append(c.s.pending, converted)
	c.s.hasPending.Store(true)
	c.s.mu.Unlock()

	c.s.added.Add(1)
	return nil
}

// Stats returns the current counters without touching the audio path
func (c *Controller) Stats() Stats {
	return Stats{
		Added:    c.s.added.Load(),
		Finished: c.s.finished.Load(),
		Active:   c.s.active.Load(),
		Frames:   c.s.frames.Load(),
	}
}

func (m *Mixer) Channels() int   { return m.s.format.Channels }
func (m *Mixer) SampleRate() int { return m.s.format.SampleRate }

// admit moves pending sources into the active set. If a producer holds the
// lock, the pending sources wait for the next frame boundary.
func (m *Mixer) admit() {
	if !m.s.hasPending.Load() {
		return
	}
	if !m.s.mu.TryLock() {
		return
	}
	n := len(m.s.pending)
	m.sources = append(m.sources, m.s.pending...)
	clear(m.s.pending)
	m.s.pending = m.s.pending[:0]
	m.s.hasPending.Store(false)
	m.s.mu.Unlock()

	m.s.active.Add(int64(n))
}

// Next returns the next output sample. It always succeeds: with nothing
// registered the mixer emits silence.
func (m *Mixer) Next() (float32, bool) {
	if m.slot == 0 {
		m.admit()
	}

	var sum float32
	kept := 0
	for _, src := range m.sources {
		v, ok := src.Next()
		if !ok {
			_ = audio.CloseSource(src)
			m.s.finished.Add(1)
			m.s.active.Add(-1)
			continue
		}
		sum += v
		m.sources[kept] = src
		kept++
	}
	if kept < len(m.sources) {
		clear(m.sources[kept:])
		m.sources = m.sources[:kept]
	}

	m.slot++
	if m.slot == m.s.format.Channels {
		m.slot = 0
		m.s.frames.Add(1)
	}

	return audio.Clamp(sum), true
}

// Fill writes the next len(buf) samples into buf
func (m *Mixer) Fill(buf []float32) {
	for i := range buf {
		buf[i], _ = m.Next()
	}
}

// Active returns the number of sources currently mixed
func (m *Mixer) Active() int {
	return len(m.sources)
}

// Close releases every active and pending source. It must only be called
// once the audio callback has stopped pulling from the mixer.
func (m *Mixer) Close() error {
	m.s.mu.Lock()
	if m.s.closed.Swap(true) {
		m.s.mu.Unlock()
		return nil
	}
	pending := m.s.pending
	m.s.pending = nil
	m.s.hasPending.Store(false)
	m.s.mu.Unlock()

	for _, src := range append(m.sources, pending...) {
		_ = audio.CloseSource(src)
	}
	m.s.active.Store(0)
	m.sources = nil
	return nil
}
