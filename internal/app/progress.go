// ABOUTME: Progress monitor for the current track
// ABOUTME: Filters position readings before they are shown to the user
package app

import (
	"fmt"
	"math"
	"time"
)

const (
	// minProgressStep is the smallest forward move worth re-rendering
	minProgressStep = time.Second

	// fractionTolerance is how far Fraction may drift from Position/Duration
	fractionTolerance = 0.01

	defaultMaxRepolls = 3
)

// Status is the playback state derived from progress readings
type Status int

const (
	StatusPlaying Status = iota
	StatusStopped
)

func (s Status) String() string {
	if s == StatusStopped {
		return "stopped"
	}
	return "playing"
}

// ProgressMonitor polls a progress reading and decides when it changed
// enough to be displayed
type ProgressMonitor struct {
	poll       func() (Progress, bool)
	maxRepolls int

	position time.Duration
	status   Status
	last     Progress
}

// NewProgressMonitor creates a monitor reading from poll, usually Player.Progress
func NewProgressMonitor(poll func() (Progress, bool)) *ProgressMonitor {
	return &ProgressMonitor{poll: poll, maxRepolls: defaultMaxRepolls}
}

// Update takes a reading and returns it with true when it should be shown.
//
// Readings are skipped when the duration is unknown, when the track has
// reached its end (the monitor then reports StatusStopped), or when the
// position moved forward by less than a second. A reading whose fraction
// disagrees with its position and duration is polled again a bounded number
// of times before being dropped.
func (m *ProgressMonitor) Update() (Progress, bool) {
	p, ok := m.read()
	if !ok {
		return Progress{}, false
	}

	if p.Duration == 0 {
		return Progress{}, false
	}

	if p.Position >= p.Duration {
		m.status = StatusStopped
		return Progress{}, false
	}

	if p.Position > m.position && p.Position-m.position < minProgressStep {
		return Progress{}, false
	}

	m.position = p.Position
	m.last = p
	return p, true
}

func (m *ProgressMonitor) read() (Progress, bool) {
	for range m.maxRepolls + 1 {
		p, ok := m.poll()
		if !ok {
			return Progress{}, false
		}
		if consistent(p) {
			return p, true
		}
	}
	return Progress{}, false
}

func consistent(p Progress) bool {
	if p.Duration <= 0 {
		return true
	}
	want := float64(p.Position) / float64(p.Duration)
	return math.Abs(min(p.Fraction, 1)-min(want, 1)) <= fractionTolerance
}

// Status returns the playback state seen by the last Update
func (m *ProgressMonitor) Status() Status {
	return m.status
}

// Last returns the last reading Update accepted
func (m *ProgressMonitor) Last() Progress {
	return m.last
}

// Reset forgets the previous track
func (m *ProgressMonitor) Reset() {
	m.position = 0
	m.status = StatusPlaying
	m.last = Progress{}
}

// FormatProgress renders p as "0:12 / 3:40"
func FormatProgress(p Progress) string {
	return fmt.Sprintf("%s / %s", formatClock(p.Position), formatClock(p.Duration))
}

func formatClock(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
