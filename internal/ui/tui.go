// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the playback screen
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Controls carries user requests from the TUI to the player
type Controls struct {
	Quit chan struct{}
}

// NewControls creates a new control channel set
func NewControls() *Controls {
	return &Controls{
		Quit: make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Controls) Model {
	return Model{
		state:    "idle",
		controls: ctrl,
	}
}

// Run creates the TUI program; the caller starts it with Run
func Run(ctrl *Controls) *tea.Program {
	return tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
}
