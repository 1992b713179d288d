package keyframe

import "io"

// SliceSource serves pre-decoded frames, mainly for tests and synthetic
// inputs.
type SliceSource struct {
	frames []Frame
	next   int
}

// NewSliceSource builds a Source over the provided frames.
func NewSliceSource(frames []Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next implements Source.
func (s *SliceSource) Next() (Frame, error) {
	if s.next >= len(s.frames) {
		return Frame{}, io.EOF
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}
