package audio_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voicechat/internal/domain"
	"voicechat/internal/infra/audio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPSource_ReceiveInjected(t *testing.T) {
	source := audio.NewHTTPSource(":0", "", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := source.Start(ctx); err != nil {
		t.Fatalf("starting source: %v", err)
	}
	defer source.Stop()

	go func() {
		time.Sleep(100 * time.Millisecond)
		source.Inject(domain.Capture{Text: "what is go"})
	}()

	received, err := source.Next(ctx)
	if err != nil {
		t.Fatalf("receiving capture: %v", err)
	}

	if received.Text != "what is go" {
		t.Errorf("text: got %q, want %q", received.Text, "what is go")
	}
}

func TestHTTPSource_TranscriptEndpoint(t *testing.T) {
	source := audio.NewHTTPSource(":0", "", discardLogger())
	handler := source.Handler()

	req := httptest.NewRequest(http.MethodPost, "/transcript", strings.NewReader("  What is X and What is Y \n"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusAccepted)
	}

	c, err := source.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if c.Text != "What is X and What is Y" || c.IsAudio() {
		t.Errorf("capture: got %+v", c)
	}
}

func TestHTTPSource_AudioEndpoint(t *testing.T) {
	source := audio.NewHTTPSource(":0", "", discardLogger())
	handler := source.Handler()

	testAudio := []byte("test audio content")
	req := httptest.NewRequest(http.MethodPost, "/audio", bytes.NewReader(testAudio))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusAccepted)
	}

	c, err := source.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !bytes.Equal(c.Audio, testAudio) {
		t.Errorf("audio mismatch: got %d bytes, want %d bytes", len(c.Audio), len(testAudio))
	}
}

func TestHTTPSource_EmptyBodies(t *testing.T) {
	handler := audio.NewHTTPSource(":0", "", discardLogger()).Handler()

	for _, path := range []string{"/transcript", "/audio"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(""))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want %d", path, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestHTTPSource_TranscriptWithToken(t *testing.T) {
	authToken := "test-secret-token-123"
	handler := audio.NewHTTPSource(":0", authToken, discardLogger()).Handler()

	tests := []struct {
		name       string
		token      string
		method     string
		wantStatus int
	}{
		{
			name:       "valid token in header",
			token:      authToken,
			method:     "header",
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "valid token in query",
			token:      authToken,
			method:     "query",
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "invalid token",
			token:      "wrong-token",
			method:     "header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing token",
			token:      "",
			method:     "header",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.NewReader("kya haal hai")
			var req *http.Request

			if tt.method == "query" {
				req = httptest.NewRequest(http.MethodPost, "/transcript?token="+tt.token, body)
			} else {
				req = httptest.NewRequest(http.MethodPost, "/transcript", body)
				if tt.token != "" {
					req.Header.Set("X-Auth-Token", tt.token)
				}
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status code: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHTTPSource_QueueFull(t *testing.T) {
	source := audio.NewHTTPSource(":0", "", discardLogger())
	handler := source.Handler()

	var last int
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodPost, "/transcript", strings.NewReader("hello"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}

	if last != http.StatusServiceUnavailable {
		t.Errorf("status after filling queue: got %d, want %d", last, http.StatusServiceUnavailable)
	}
}

func TestHTTPSource_Health(t *testing.T) {
	source := audio.NewHTTPSource(":0", "", discardLogger())
	handler := source.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health before start: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	if err := source.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer source.Stop()

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health after start: got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHTTPSource_StopClosesSource(t *testing.T) {
	source := audio.NewHTTPSource(":0", "", discardLogger())
	if err := source.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := source.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, err := source.Next(context.Background()); !errors.Is(err, domain.ErrCaptureClosed) {
		t.Errorf("Next after Stop: got %v, want ErrCaptureClosed", err)
	}
	if source.Inject(domain.Capture{Text: "late"}) {
		t.Error("Inject after Stop should be refused")
	}
}

func TestFileSource_LoadFromDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	files := map[string][]byte{
		"a-question.txt": []byte("What is X and What is Y\n"),
		"b-command.wav":  []byte("RIFF....WAVEfmt audio data"),
		"notes.md":       []byte("ignored"),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), content, 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}
	}

	source := audio.NewFileSource(tmpDir)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := source.Start(ctx); err != nil {
		t.Fatalf("starting source: %v", err)
	}

	first, err := source.Next(ctx)
	if err != nil {
		t.Fatalf("reading first capture: %v", err)
	}
	if first.Text != "What is X and What is Y" {
		t.Errorf("first capture text: got %q", first.Text)
	}

	second, err := source.Next(ctx)
	if err != nil {
		t.Fatalf("reading second capture: %v", err)
	}
	if !second.IsAudio() {
		t.Error("second capture should carry audio")
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "a-question.txt.processed")); err != nil {
		t.Errorf("consumed file should be renamed: %v", err)
	}

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer shortCancel()
	if _, err := source.Next(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("third Next: got %v, want deadline exceeded", err)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := audio.NewRateLimiter(2, time.Hour)

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients have their own bucket")
	}
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	rl := audio.NewRateLimiter(1, time.Minute)
	handler := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRecorder()
	handler(first, httptest.NewRequest(http.MethodPost, "/transcript", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request: got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler(second, httptest.NewRequest(http.MethodPost, "/transcript", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}
