package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCapability, "transcribe", "post audio", "endpoint unreachable", cause)
	if !errors.Is(err, ErrCapability) {
		t.Fatal("wrapped error should match ErrCapability")
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should preserve cause")
	}
	for _, part := range []string{"transcribe", "post audio", "endpoint unreachable", "connection refused"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("error %q missing %q", err, part)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "describe-frames", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatal("nil marker should default to ErrTransient")
	}
}

func TestWrapEmptyDetail(t *testing.T) {
	err := Wrap(ErrValidation, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("error %q missing generic detail", err)
	}
}
