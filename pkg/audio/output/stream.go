// ABOUTME: OutputStream and its copyable play handle
// ABOUTME: The stream owns the device; handles stop working once it closes
package output

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/playout/pkg/audio"
	"github.com/Resonate-Protocol/playout/pkg/audio/decode"
	"github.com/Resonate-Protocol/playout/pkg/audio/mixer"
)

// OutputStream owns a running hardware stream and the mixer feeding it.
// Audio plays for as long as the OutputStream is open.
type OutputStream struct {
	device string
	config SupportedStreamConfig
	stream Stream
	ctrl   *mixer.Controller
	mixer  *mixer.Mixer
	ref    *streamRef

	closeOnce sync.Once
	closeErr  error
}

// streamRef is shared with handles; it is cleared when the stream closes
type streamRef struct {
	ctrl atomic.Pointer[mixer.Controller]
}

func newOutputStream(device string, cfg SupportedStreamConfig, st Stream, ctrl *mixer.Controller, mix *mixer.Mixer) *OutputStream {
	ref := &streamRef{}
	ref.ctrl.Store(ctrl)
	return &OutputStream{
		device: device,
		config: cfg,
		stream: st,
		ctrl:   ctrl,
		mixer:  mix,
		ref:    ref,
	}
}

// TryDefault opens the host's default output device, falling back to any
// other device that works. On total failure the default device's first
// error is returned.
func TryDefault(host Host, opts ...Option) (*OutputStream, OutputStreamHandle, error) {
	s, err := negotiateHost(host, newOptions(opts))
	if err != nil {
		return nil, OutputStreamHandle{}, err
	}
	return s, s.Handle(), nil
}

// TryFromDevice opens dev with its default config, falling back to its
// other supported configs.
func TryFromDevice(dev Device, opts ...Option) (*OutputStream, OutputStreamHandle, error) {
	s, err := negotiateDevice(dev, newOptions(opts))
	if err != nil {
		return nil, OutputStreamHandle{}, err
	}
	return s, s.Handle(), nil
}

// Handle returns a new handle for playing on this stream
func (s *OutputStream) Handle() OutputStreamHandle {
	return OutputStreamHandle{ref: s.ref}
}

// Config returns the negotiated stream config
func (s *OutputStream) Config() SupportedStreamConfig {
	return s.config
}

// Device returns the name of the device playing the stream
func (s *OutputStream) Device() string {
	return s.device
}

// Controller returns the mixer controller, mainly for its statistics
func (s *OutputStream) Controller() *mixer.Controller {
	return s.ctrl
}

// Close stops the hardware stream and invalidates every handle. Sources
// still playing are closed. Calling Close more than once is a no-op.
func (s *OutputStream) Close() error {
	s.closeOnce.Do(func() {
		s.ref.ctrl.Store(nil)
		if err := s.stream.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close output stream: %w", err)
		}
		s.mixer.Close()
	})
	return s.closeErr
}

// OutputStreamHandle plays sources on an OutputStream. It is a small value
// that can be copied freely and used from any goroutine. The zero value and
// handles of a closed stream fail with ErrNoDevice.
type OutputStreamHandle struct {
	ref *streamRef
}

func (h OutputStreamHandle) controller() (*mixer.Controller, error) {
	if h.ref == nil {
		return nil, ErrNoDevice
	}
	ctrl := h.ref.ctrl.Load()
	if ctrl == nil {
		return nil, ErrNoDevice
	}
	return ctrl, nil
}

// add registers src with the mixer. A mixer closed after the handle loaded
// it reports ErrNoDevice, the same as a handle of a closed stream.
func add(ctrl *mixer.Controller, src audio.Source) error {
	err := ctrl.Add(src)
	if errors.Is(err, mixer.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	return err
}

// PlayRaw starts playing src immediately, mixed with whatever else is playing.
// It returns without waiting for playback.
func (h OutputStreamHandle) PlayRaw(src audio.Source) error {
	ctrl, err := h.controller()
	if err != nil {
		return err
	}
	return add(ctrl, src)
}

// PlayFile decodes the file at path and plays it
func (h OutputStreamHandle) PlayFile(path string) error {
	ctrl, err := h.controller()
	if err != nil {
		return err
	}

	src, err := decode.Open(path)
	if err != nil {
		return &DecoderError{Name: path, Err: err}
	}
	return add(ctrl, src)
}

// PlayReader decodes r and plays it. The codec is chosen from name's
// extension; r is closed with the source if it is an io.Closer.
func (h OutputStreamHandle) PlayReader(r io.Reader, name string) error {
	ctrl, err := h.controller()
	if err != nil {
		return err
	}

	codec, err := decode.CodecFor(name)
	if err != nil {
		return &DecoderError{Name: name, Err: err}
	}
	src, err := decode.New(r, codec)
	if err != nil {
		return &DecoderError{Name: name, Err: err}
	}
	return add(ctrl, src)
}
