// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

func testCfg() types.AIConfig {
	return types.AIConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "test/0.1",
		},
		Model:      "gemini-2.0-flash",
		APIKey:     "test-key",
		MaxRetries: -1,
	}
}

func withTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	old := apiBase
	apiBase = ts.URL
	t.Cleanup(func() {
		apiBase = old
		ts.Close()
	})
	return ts
}

func answerBody(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	cfg := testCfg()
	cfg.APIKey = ""
	if _, err := NewClient(cfg); err == nil {
		t.Error("NewClient without an API key should fail")
	}
}

func TestChat(t *testing.T) {
	var gotPath, gotKey, gotAgent string
	var gotBody generateRequest

	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		gotAgent = r.Header.Get("User-Agent")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(answerBody("ranked answer")))
	})

	c, err := NewClient(testCfg())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.Chat(context.Background(), "rank these")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "ranked answer" {
		t.Errorf("answer = %q, want %q", got, "ranked answer")
	}

	if !strings.Contains(gotPath, "gemini-2.0-flash:generateContent") {
		t.Errorf("path = %q, want the model's generateContent endpoint", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q, want test-key", gotKey)
	}
	if gotAgent != "test/0.1" {
		t.Errorf("user agent = %q, want test/0.1", gotAgent)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 1 || gotBody.Contents[0].Parts[0].Text != "rank these" {
		t.Errorf("request body = %+v, want the prompt as a single part", gotBody)
	}
}

func TestChatConcatenatesParts(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"text": "first "}, {"text": "second"},
				}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	c, _ := NewClient(testCfg())
	got, err := c.Chat(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "first second" {
		t.Errorf("answer = %q, want the parts concatenated", got)
	}
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			name: "no candidates",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"candidates": []}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withTestServer(t, tt.handler)

			c, _ := NewClient(testCfg())
			if _, err := c.Chat(context.Background(), "prompt"); err == nil {
				t.Error("Chat should surface the failure")
			}
		})
	}
}

func TestChatSingleAttemptOn429(t *testing.T) {
	calls := 0
	withTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c, _ := NewClient(testCfg())
	if _, err := c.Chat(context.Background(), "prompt"); err == nil {
		t.Error("a 429 should be an error")
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1: retries are disabled for this client", calls)
	}
}
