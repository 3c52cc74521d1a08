// ABOUTME: Bubbletea model for the playback TUI
// ABOUTME: Shows the negotiated output, track progress and mixer counters
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Output
	device string
	config string

	// Track
	track    string
	trackID  string
	position time.Duration
	duration time.Duration
	fraction float64
	state    string

	// Mixer
	active   int64
	added    uint64
	finished uint64
	frames   uint64

	// Debug
	showDebug  bool
	goroutines int
	memAlloc   uint64

	controls *Controls

	// Dimensions
	width  int
	height int
}

// StatusMsg updates TUI state. Zero fields leave the current value alone.
type StatusMsg struct {
	Device string
	Config string

	Track    string
	TrackID  string
	Position time.Duration
	Duration time.Duration
	Fraction float64
	State    string

	Active   int64
	Added    uint64
	Finished uint64
	Frames   uint64

	Goroutines int
	MemAlloc   uint64
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderTrack())
	b.WriteString(m.renderStats())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	output := "No output"
	if m.device != "" {
		output = fmt.Sprintf("%s (%s)", truncate(m.device, 24), m.config)
	}

	return fmt.Sprintf(`┌─ Playout ────────────────────────────────────────────┐
│ Output: %-44s │
├──────────────────────────────────────────────────────┤
`, output)
}

func (m Model) renderTrack() string {
	if m.track == "" {
		return "│ Nothing playing                                      │\n"
	}

	s := fmt.Sprintf("│ Track:  %-44s │\n", truncate(m.track, 44))
	if m.duration > 0 {
		s += fmt.Sprintf("│ [%s] %-13s │\n",
			renderBar(int(m.fraction*1000), 1000, 36), formatProgress(m.position, m.duration))
	} else {
		s += fmt.Sprintf("│ Position: %-42s │\n", formatClock(m.position))
	}
	s += fmt.Sprintf("│ State:  %-44s │\n", m.state)
	return s
}

func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Mixer:  active %d  added %d  finished %d%-12s │
`, m.active, m.added, m.finished, "")
}

func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Track ID:   %-38s │
│   Frames:     %-38d │
│   Goroutines: %-38d │
│   Heap:       %-38s │
`, m.trackID, m.frames, m.goroutines, fmt.Sprintf("%.1f MiB", float64(m.memAlloc)/(1<<20)))
}

func (m Model) renderHelp() string {
	return `│ d:Debug  q:Quit                                      │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Device != "" {
		m.device = msg.Device
		m.config = msg.Config
	}
	if msg.TrackID != "" && msg.TrackID != m.trackID {
		m.trackID = msg.TrackID
		m.track = msg.Track
		m.position, m.duration, m.fraction = 0, 0, 0
	}
	if msg.TrackID != "" {
		m.position = msg.Position
		m.duration = msg.Duration
		m.fraction = msg.Fraction
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Added != 0 {
		m.active = msg.Active
		m.added = msg.Added
		m.finished = msg.Finished
		m.frames = msg.Frames
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
	}
}

func renderBar(value, total, width int) string {
	filled := min(max(value, 0)*width/total, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatProgress(pos, dur time.Duration) string {
	return formatClock(pos) + " / " + formatClock(dur)
}

func formatClock(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
