// ABOUTME: Audio output package for playing audio
// ABOUTME: Negotiates a device and format, then keeps the device fed from a mixer
// Package output opens an audio device and plays sources through it.
//
// A Host enumerates Devices; a Device builds Streams for a concrete
// SupportedStreamConfig and calls back into a Renderer, which encodes mixer
// output into the device buffer. TryDefault and TryFromDevice search for a
// working device and format, start the stream and return an OutputStream
// together with a copyable OutputStreamHandle for playing sources.
//
// Backends: malgo (miniaudio), oto, portaudio (build tag "portaudio") and a
// null backend that discards audio at real-time pace.
//
// Example:
//
//	host, err := output.NewHost("malgo")
//	stream, handle, err := output.TryDefault(host)
//	defer stream.Close()
//	err = handle.PlayFile("song.mp3")
package output
