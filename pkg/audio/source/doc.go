// ABOUTME: Source implementations package
// ABOUTME: Provides generators and wrappers that implement audio.Source
// Package source provides ready-made audio.Source implementations.
//
// Generators: Silence, Constant, Sine, FromSlice.
// Wrappers: Take (length limit), Tracked (playback position),
// Buffered (decode-ahead on a separate goroutine), FromBeep (gopxl/beep
// streamers).
//
// Example:
//
//	tone := source.Take(source.Sine(2, 48000, 440, 0.5), 2*time.Second)
//	err := handle.PlayRaw(tone)
package source
