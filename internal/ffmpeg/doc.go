// Package ffmpeg shells out to ffmpeg/ffprobe for media inspection, audio
// extraction, gray frame decoding, and keyframe stills.
package ffmpeg
