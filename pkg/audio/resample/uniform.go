// ABOUTME: Combined format conversion for mixer inputs
// ABOUTME: Resamples first, then remaps channels, skipping steps that are not needed
package resample

import "github.com/Resonate-Protocol/playout/pkg/audio"

// Uniform converts src to the target format. Every path yields whole frames
// only: a source that already matches is wrapped in WholeFrames so a partial
// trailing frame is dropped just as the converters drop it.
func Uniform(src audio.Source, target audio.Format) audio.Source {
	if audio.FormatOf(src) == target {
		return WholeFrames(src)
	}
	return ConvertChannels(ConvertRate(src, target.SampleRate), target.Channels)
}
