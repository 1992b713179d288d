// Package keyframe detects scene changes in a luminance frame stream and
// selects representative keyframes. Detection scores the histogram
// correlation between consecutive frames; accepted frames are spaced by a
// minimum interval and deduplicated with a 256-bit difference hash.
//
// The package is deterministic and has no external dependencies; decoding is
// the caller's concern (see internal/ffmpeg).
package keyframe
