package keyframe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
)

// Frame is one decoded luminance frame. Pixels holds Width*Height gray
// values in row-major order.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pixels []byte
}

// Source yields frames in presentation order. Next returns io.EOF after the
// final frame.
type Source interface {
	Next() (Frame, error)
}

// Config tunes scene detection and deduplication.
type Config struct {
	// Threshold is the minimum scene-change score (0-100) for a frame to
	// become a keyframe candidate.
	Threshold float64
	// MaxFrames caps the number of accepted keyframes.
	MaxFrames int
	// MinIntervalSeconds is the minimum spacing between accepted keyframes.
	MinIntervalSeconds float64
	// DedupDistance is the maximum Hamming distance at which a candidate is
	// considered a duplicate of an already accepted keyframe.
	DedupDistance int
	// FPS converts frame indices into timestamps.
	FPS float64
}

// Candidate is an accepted keyframe with its detection provenance. The frame
// pixels are retained so the caller can persist a still.
type Candidate struct {
	FrameIndex       int
	TimestampSeconds float64
	Score            float64
	Hash             Hash
	Frame            Frame
}

// ErrFrameMismatch reports a frame whose dimensions differ from the first
// frame of the stream.
var ErrFrameMismatch = errors.New("frame dimensions changed mid-stream")

// Extract runs scene detection over the source and returns accepted
// keyframes in order. Empty or single-frame input yields no keyframes and no
// error. The first frame seeds the detector and is never itself a candidate.
func Extract(ctx context.Context, src Source, cfg Config) ([]Candidate, error) {
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %v", cfg.FPS)
	}
	if cfg.MaxFrames <= 0 {
		return nil, nil
	}

	first, err := src.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if err := checkFrame(first); err != nil {
		return nil, err
	}

	width, height := first.Width, first.Height
	prevHist := histogram(first.Pixels)

	var accepted []Candidate
	// Negative start so an early scene change right after the first frame
	// still satisfies the spacing rule.
	lastAccepted := -cfg.MinIntervalSeconds

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return accepted, nil
		}
		if err != nil {
			return nil, err
		}
		if frame.Width != width || frame.Height != height {
			return nil, fmt.Errorf("%w: frame %d is %dx%d, stream is %dx%d",
				ErrFrameMismatch, frame.Index, frame.Width, frame.Height, width, height)
		}
		if err := checkFrame(frame); err != nil {
			return nil, err
		}

		hist := histogram(frame.Pixels)
		score := (1 - correlation(prevHist, hist)) * 100
		prevHist = hist

		if len(accepted) >= cfg.MaxFrames {
			continue
		}
		timestamp := float64(frame.Index) / cfg.FPS
		if score <= cfg.Threshold || timestamp-lastAccepted < cfg.MinIntervalSeconds {
			continue
		}

		hash := DHash(frame)
		if isDuplicate(hash, accepted, cfg.DedupDistance) {
			continue
		}

		accepted = append(accepted, Candidate{
			FrameIndex:       frame.Index,
			TimestampSeconds: timestamp,
			Score:            score,
			Hash:             hash,
			Frame:            frame,
		})
		lastAccepted = timestamp
	}
}

func checkFrame(frame Frame) error {
	if frame.Width <= 0 || frame.Height <= 0 {
		return fmt.Errorf("frame %d has invalid dimensions %dx%d", frame.Index, frame.Width, frame.Height)
	}
	if len(frame.Pixels) != frame.Width*frame.Height {
		return fmt.Errorf("frame %d has %d pixels, want %d", frame.Index, len(frame.Pixels), frame.Width*frame.Height)
	}
	return nil
}

func isDuplicate(hash Hash, accepted []Candidate, maxDistance int) bool {
	for _, candidate := range accepted {
		if hash.Distance(candidate.Hash) <= maxDistance {
			return true
		}
	}
	return false
}

// histogram returns a normalized 256-bin luminance histogram.
func histogram(pixels []byte) [256]float64 {
	var hist [256]float64
	if len(pixels) == 0 {
		return hist
	}
	for _, p := range pixels {
		hist[p]++
	}
	total := float64(len(pixels))
	for i := range hist {
		hist[i] /= total
	}
	return hist
}

// correlation computes the Pearson correlation of two histograms. Identical
// distributions score 1; unrelated distributions score near 0.
func correlation(a, b [256]float64) float64 {
	var meanA, meanB float64
	for i := 0; i < 256; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= 256
	meanB /= 256

	var num, denomA, denomB float64
	for i := 0; i < 256; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		num += da * db
		denomA += da * da
		denomB += db * db
	}

	denom := math.Sqrt(denomA * denomB)
	if denom == 0 {
		// Both histograms are flat; treat them as identical.
		return 1
	}
	return num / denom
}
