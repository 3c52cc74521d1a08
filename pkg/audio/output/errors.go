// ABOUTME: Error types returned by device negotiation and playback
// ABOUTME: Each typed error names the device involved and unwraps to the backend cause
package output

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/playout/pkg/audio/mixer"
)

// ErrNoDevice is returned when no output device exists or the stream behind
// a handle has been closed.
var ErrNoDevice = errors.New("no output device available")

// ErrInvalidSource is returned when a source has no channels or no sample
// rate. The rejected source is closed.
var ErrInvalidSource = mixer.ErrInvalidSource

// ErrUnsupportedConfig is returned by backends asked for a format they cannot open
var ErrUnsupportedConfig = errors.New("unsupported stream config")

// BuildStreamError reports a device refusing a stream config
type BuildStreamError struct {
	Device string
	Config SupportedStreamConfig
	Err    error
}

func (e *BuildStreamError) Error() string {
	return fmt.Sprintf("failed to build output stream %s on %q: %v", e.Config, e.Device, e.Err)
}

func (e *BuildStreamError) Unwrap() error { return e.Err }

// PlayStreamError reports a stream that was built but failed to start
type PlayStreamError struct {
	Device string
	Err    error
}

func (e *PlayStreamError) Error() string {
	return fmt.Sprintf("failed to start output stream on %q: %v", e.Device, e.Err)
}

func (e *PlayStreamError) Unwrap() error { return e.Err }

// DefaultStreamConfigError reports a failed default config query
type DefaultStreamConfigError struct {
	Device string
	Err    error
}

func (e *DefaultStreamConfigError) Error() string {
	return fmt.Sprintf("failed to query default config of %q: %v", e.Device, e.Err)
}

func (e *DefaultStreamConfigError) Unwrap() error { return e.Err }

// SupportedStreamConfigsError reports a failed supported config enumeration
type SupportedStreamConfigsError struct {
	Device string
	Err    error
}

func (e *SupportedStreamConfigsError) Error() string {
	return fmt.Sprintf("failed to list supported configs of %q: %v", e.Device, e.Err)
}

func (e *SupportedStreamConfigsError) Unwrap() error { return e.Err }

// DecoderError reports a file or reader that could not be decoded
type DecoderError struct {
	Name string
	Err  error
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Name, e.Err)
}

func (e *DecoderError) Unwrap() error { return e.Err }
