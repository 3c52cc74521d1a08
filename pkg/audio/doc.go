// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the Source capability, Format and sample conversion functions
// Package audio provides the fundamental types shared by the playout engine.
//
// This package defines:
//   - Source: a lazy producer of interleaved float32 samples with fixed
//     channel count and sample rate
//   - Timed: optional capability for sources that know their length
//   - Format: channel count and sample rate of a stream
//
// It also provides conversions between normalized float samples and the
// integer PCM widths used by hardware:
//   - float32 -> int16 / uint16 (clamped, rounded)
//   - int16 / N-bit integers -> float32
//
// Example:
//
//	var src audio.Source = source.Sine(2, 48000, 440, 0.5)
//	v, ok := src.Next()
//	pcm := audio.ToInt16(v)
package audio
