package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := []Option{WithSleeper(func(time.Duration) {})}
	return NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		VisionModel: "test-vision",
	}, append(base, opts...)...)
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"content":` + string(mustJSON(content)) + `},"finish_reason":"stop"}]}`
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func TestCompleteJSONSendsJSONMode(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		_, _ = w.Write([]byte(completionBody(`{"answer":42}`)))
	})

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"answer":42}` {
		t.Fatalf("content = %q", content)
	}
	if captured["model"] != "test-model" {
		t.Fatalf("model = %v", captured["model"])
	}
	format, _ := captured["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("response_format = %v", captured["response_format"])
	}
}

func TestDescribeImageBuildsVisionPayload(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(completionBody("a slide with a bar chart")))
	})

	description, err := client.DescribeImage(context.Background(), "describe this frame", []byte{0xff, 0xd8, 0xff})
	if err != nil {
		t.Fatalf("DescribeImage: %v", err)
	}
	if description != "a slide with a bar chart" {
		t.Fatalf("description = %q", description)
	}
	if captured["model"] != "test-vision" {
		t.Fatalf("model = %v, want vision model", captured["model"])
	}

	messages := captured["messages"].([]any)
	parts := messages[0].(map[string]any)["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("content parts = %d, want text + image", len(parts))
	}
	image := parts[1].(map[string]any)
	uri := image["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Fatalf("image url = %q, want data URI", uri)
	}
}

func TestRetryOnServerError(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(completionBody(`{"ok":true}`)))
	})

	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON after retries: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	})

	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error for 401")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want no retry on 401", attempts)
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	var slept []time.Duration
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(completionBody(`{"ok":true}`)))
	}, WithSleeper(func(d time.Duration) { slept = append(slept, d) }))

	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("slept = %v, want single 2s delay", slept)
	}
}

func TestCompleteJSONRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{Model: "m"})
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	type payload struct {
		Summary string `json:"summary"`
	}

	tests := []struct {
		name  string
		input string
		want  string
		fails bool
	}{
		{name: "plain", input: `{"summary":"ok"}`, want: "ok"},
		{name: "fenced", input: "```json\n{\"summary\":\"ok\"}\n```", want: "ok"},
		{name: "fenced no language", input: "```\n{\"summary\":\"ok\"}\n```", want: "ok"},
		{name: "leading prose", input: "Here is the JSON:\n{\"summary\":\"ok\"}", want: "ok"},
		{name: "empty", input: "   ", fails: true},
		{name: "not json", input: "no structured data here", fails: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got payload
			err := DecodeLLMJSON(tc.input, &got)
			if tc.fails {
				if err == nil {
					t.Fatal("expected decode error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeLLMJSON: %v", err)
			}
			if got.Summary != tc.want {
				t.Fatalf("summary = %q, want %q", got.Summary, tc.want)
			}
		})
	}
}
