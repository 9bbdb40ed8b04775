package gemini_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"voicechat/internal/domain"
	"voicechat/internal/infra/gemini"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Ask(t *testing.T) {
	var gotBody map[string]any
	var gotKey, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}

		response := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "Paris is the capital of France."}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", server.URL, discardLogger())

	answer := client.Ask(context.Background(), "What is the capital of France")
	if answer != "Paris is the capital of France." {
		t.Errorf("answer: got %q", answer)
	}

	if gotPath != "/models/gemini-test:generateContent" {
		t.Errorf("path: got %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("key: got %s, want test-key", gotKey)
	}

	contents, _ := gotBody["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("contents: got %d, want 1 (no earlier turns)", len(contents))
	}
	parts := contents[0].(map[string]any)["parts"].([]any)
	if text := parts[0].(map[string]any)["text"]; text != "What is the capital of France" {
		t.Errorf("question text: got %v", text)
	}
}

func TestClient_AskFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`, want: domain.FallbackAnswer},
		{name: "empty object", status: http.StatusOK, body: `{}`, want: domain.FallbackAnswer},
		{name: "no parts", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[]}}]}`, want: domain.FallbackAnswer},
		{name: "empty text", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`, want: domain.FallbackAnswer},
		{name: "json error body", status: http.StatusBadRequest, body: `{"error":{"code":400,"message":"API key not valid"}}`, want: domain.FallbackAnswer},
		{name: "non json body", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, want: domain.NetworkErrorAnswer},
		{name: "null body", status: http.StatusOK, body: `null`, want: domain.NetworkErrorAnswer},
		{name: "truncated json", status: http.StatusOK, body: `{"candidates":[`, want: domain.NetworkErrorAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := gemini.NewClientWithURL("k", "", server.URL, discardLogger())
			if got := client.Ask(context.Background(), "q"); got != tt.want {
				t.Errorf("answer: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_AskSingleAttempt(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "unavailable")
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("k", "", server.URL, discardLogger())
	if got := client.Ask(context.Background(), "q"); got != domain.NetworkErrorAnswer {
		t.Errorf("answer: got %q", got)
	}
	if calls != 1 {
		t.Errorf("attempts: got %d, want 1", calls)
	}
}

func TestClient_AskUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := gemini.NewClientWithURL("k", "", url, discardLogger())
	if got := client.Ask(context.Background(), "q"); got != domain.NetworkErrorAnswer {
		t.Errorf("answer: got %q, want %q", got, domain.NetworkErrorAnswer)
	}
}
