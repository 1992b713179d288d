package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"clipsight/internal/testsupport"
)

func TestTranscribePostsMultipartAndParsesResult(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "audio.wav")
	testsupport.WriteFile(t, audioPath, 1024)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model field = %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language field = %q", got)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format field = %q", got)
		}
		if _, header, err := r.FormFile("file"); err != nil {
			t.Errorf("file field: %v", err)
		} else if header.Filename != "audio.wav" {
			t.Errorf("filename = %q", header.Filename)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"text": " hello world ",
			"language": "en",
			"segments": [
				{"start": 0, "end": 1.5, "text": " hello "},
				{"start": 1.5, "end": 3.0, "text": " world "}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:  server.URL,
		APIKey:   "secret",
		Model:    "whisper-1",
		Language: "en",
	})

	result, err := client.Transcribe(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello world" {
		t.Fatalf("text = %q", result.Text)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(result.Segments))
	}
	if result.Segments[0].Text != "hello" || result.Segments[1].End != 3.0 {
		t.Fatalf("segments = %+v", result.Segments)
	}
}

func TestTranscribeSurfacesServerError(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "audio.wav")
	testsupport.WriteFile(t, audioPath, 64)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	if _, err := client.Transcribe(context.Background(), audioPath); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:9"})
	if _, err := client.Transcribe(context.Background(), "/no/such/audio.wav"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
