// ABOUTME: Real-time mixer package
// ABOUTME: Sums registered sources into one stream in the device format
// Package mixer sums any number of audio sources into a single interleaved
// stream with a fixed channel count and sample rate.
//
// New returns two halves sharing one registration set:
//   - Controller is used by any goroutine to register sources; Add never
//     waits on the audio callback
//   - Mixer is pulled by the audio callback; it never blocks and never
//     ends, emitting silence when nothing is registered
//
// Sources are converted to the mixer format when they are added, so the
// callback only sums and clamps.
package mixer
