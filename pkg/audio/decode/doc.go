// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Wraps third-party decoders as audio.Source values
// Package decode turns encoded audio into audio.Source values.
//
// Supports: MP3, FLAC, Ogg Vorbis, Ogg Opus, WAV, AIFF and raw 16-bit PCM.
//
// Open and New return sources that decode ahead on their own goroutine, so
// the audio callback never pays for decoding. Header and container errors
// are returned before any sample is produced; errors in the middle of a
// stream end the source and are reported by Stream.Err.
//
// Example:
//
//	src, err := decode.Open("song.flac")
//	if err != nil {
//		return err
//	}
//	handle.PlayRaw(src)
package decode
