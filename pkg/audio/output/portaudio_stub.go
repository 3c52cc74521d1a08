//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import "errors"

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

func newPortAudioHost(hostOptions) (Host, error) {
	return nil, errPortAudioDisabled
}
