// ABOUTME: Per-source format conversion package
// ABOUTME: Converts sample rate and channel count of streaming sources
// Package resample provides streaming conversion of audio.Source values.
//
// ConvertRate uses linear interpolation on an exact integer phase, so a
// source of N frames at rate A yields ceil(N*B/A) frames at rate B with the
// pitch preserved. ConvertChannels maps channel layouts with a fixed rule.
// Uniform combines both to reach a mixer's target format.
//
// Example:
//
//	src := resample.Uniform(decoded, audio.Format{Channels: 2, SampleRate: 48000})
package resample
