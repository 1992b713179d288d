package media

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusFailed, StatusPending, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusFailed, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusProcessing, false},
		{StatusProcessing, StatusPending, false},
	}
	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Pending "); !ok || status != StatusPending {
		t.Fatalf("ParseStatus pending = %q, %v", status, ok)
	}
	if _, ok := ParseStatus("queued"); ok {
		t.Fatal("unknown status should not parse")
	}
}

func TestParseKind(t *testing.T) {
	if kind, ok := ParseKind("VIDEO"); !ok || kind != KindVideo {
		t.Fatalf("ParseKind video = %q, %v", kind, ok)
	}
	if _, ok := ParseKind("image"); ok {
		t.Fatal("unknown kind should not parse")
	}
}

func TestStageLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"extract-audio", "Extract Audio"},
		{"describe-frames", "Describe Frames"},
		{"transcribe", "Transcribe"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := StageLabel(tc.in); got != tc.want {
			t.Fatalf("StageLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
