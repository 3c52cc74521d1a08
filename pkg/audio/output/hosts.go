// ABOUTME: Backend selection
// ABOUTME: Creates a Host by name with shared buffer options
package output

import (
	"fmt"
	"time"
)

// DefaultBufferDuration is the device period requested when none is configured
const DefaultBufferDuration = 20 * time.Millisecond

// HostOption configures a Host created by NewHost
type HostOption func(*hostOptions)

type hostOptions struct {
	bufferDuration time.Duration
}

// WithBufferDuration sets the period each hardware callback should cover
func WithBufferDuration(d time.Duration) HostOption {
	return func(o *hostOptions) {
		if d > 0 {
			o.bufferDuration = d
		}
	}
}

// HostNames lists the backends NewHost accepts, default first
func HostNames() []string {
	return []string{"malgo", "oto", "portaudio", "null"}
}

// NewHost creates the named backend. An empty name selects malgo.
func NewHost(name string, opts ...HostOption) (Host, error) {
	o := hostOptions{bufferDuration: DefaultBufferDuration}
	for _, opt := range opts {
		opt(&o)
	}

	switch name {
	case "", "malgo":
		return newMalgoHost(o)
	case "oto":
		return newOtoHost(o), nil
	case "portaudio":
		return newPortAudioHost(o)
	case "null":
		return NewNullHost(o.bufferDuration), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q (available: %v)", name, HostNames())
	}
}
