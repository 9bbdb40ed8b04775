package speech_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voicechat/internal/domain"
	"voicechat/internal/infra/speech"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine blocks each Speak until release is closed or ctx ends.
type fakeEngine struct {
	voices  []speech.Voice
	release chan struct{}
	err     error
	avail   error

	mu        sync.Mutex
	requests  []speech.Request
	cancelled int
	started   chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{release: make(chan struct{}), started: make(chan struct{}, 16)}
}

func (f *fakeEngine) Name() string                      { return "fake" }
func (f *fakeEngine) Voices() []speech.Voice            { return f.voices }
func (f *fakeEngine) Available(_ context.Context) error { return f.avail }

func (f *fakeEngine) Speak(ctx context.Context, req speech.Request) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	f.started <- struct{}{}

	select {
	case <-f.release:
		return f.err
	case <-ctx.Done():
		f.mu.Lock()
		f.cancelled++
		f.mu.Unlock()
		return ctx.Err()
	}
}

func waitStarted(t *testing.T, f *fakeEngine) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for playback to start")
	}
}

func TestDriver_CompletesOnce(t *testing.T) {
	engine := newFakeEngine()
	driver := speech.NewDriver(engine, discardLogger())

	var calls atomic.Int32
	done := make(chan struct{})
	driver.Speak("hello", domain.LanguageEnglish, func() {
		calls.Add(1)
		close(done)
	})

	waitStarted(t, engine)
	if !speech.DriverActive(driver) {
		t.Error("driver should be active during playback")
	}
	close(engine.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion not called")
	}

	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("completions: got %d, want 1", calls.Load())
	}
	if speech.DriverActive(driver) {
		t.Error("driver should be idle after playback")
	}
}

func TestDriver_PreemptionDropsCompletion(t *testing.T) {
	engine := newFakeEngine()
	driver := speech.NewDriver(engine, discardLogger())

	var first, second atomic.Int32
	driver.Speak("first", domain.LanguageEnglish, func() { first.Add(1) })
	waitStarted(t, engine)

	secondDone := make(chan struct{})
	driver.Speak("second", domain.LanguageEnglish, func() {
		second.Add(1)
		close(secondDone)
	})
	waitStarted(t, engine)

	deadline := time.Now().Add(2 * time.Second)
	for {
		engine.mu.Lock()
		cancelled := engine.cancelled
		engine.mu.Unlock()
		if cancelled == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first playback was not cancelled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(engine.release)

	select {
	case <-secondDone:
	case <-time.After(2 * time.Second):
		t.Fatal("second completion not called")
	}

	time.Sleep(20 * time.Millisecond)
	if first.Load() != 0 {
		t.Errorf("preempted completion ran %d times", first.Load())
	}
	if second.Load() != 1 {
		t.Errorf("second completions: got %d, want 1", second.Load())
	}
}

func TestDriver_FailureStillCompletes(t *testing.T) {
	engine := newFakeEngine()
	engine.err = errors.New("audio device lost")
	close(engine.release)
	driver := speech.NewDriver(engine, discardLogger())

	done := make(chan struct{})
	driver.Speak("hello", domain.LanguageEnglish, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion not called after synthesis failure")
	}
}

func TestDriver_StopDropsCompletion(t *testing.T) {
	engine := newFakeEngine()
	driver := speech.NewDriver(engine, discardLogger())

	var calls atomic.Int32
	driver.Speak("hello", domain.LanguageEnglish, func() { calls.Add(1) })
	waitStarted(t, engine)

	driver.Stop()
	time.Sleep(50 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("completion ran after Stop")
	}
	if speech.DriverActive(driver) {
		t.Error("driver should be idle after Stop")
	}
}

func TestDriver_SelectsVoiceForLanguage(t *testing.T) {
	engine := newFakeEngine()
	engine.voices = []speech.Voice{
		{Name: "english", Locale: "en-US"},
		{Name: "hindi", Locale: "hi-IN"},
	}
	close(engine.release)
	driver := speech.NewDriver(engine, discardLogger())

	done := make(chan struct{}, 2)
	driver.Speak("नमस्ते", domain.LanguageHindi, func() { done <- struct{}{} })
	<-done
	driver.Speak("hello", domain.LanguageEnglish, func() { done <- struct{}{} })
	<-done

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if len(engine.requests) != 2 {
		t.Fatalf("requests: got %d, want 2", len(engine.requests))
	}
	if r := engine.requests[0]; r.Locale != "hi-IN" || r.Voice == nil || r.Voice.Name != "hindi" {
		t.Errorf("hindi request: got %+v", r)
	}
	if r := engine.requests[1]; r.Locale != "en-US" || r.Voice == nil || r.Voice.Name != "english" {
		t.Errorf("english request: got %+v", r)
	}
}

func TestDriver_DefaultVoiceWhenNoneMatches(t *testing.T) {
	engine := newFakeEngine()
	engine.voices = []speech.Voice{{Name: "english", Locale: "en-US"}}
	close(engine.release)
	driver := speech.NewDriver(engine, discardLogger())

	done := make(chan struct{})
	driver.Speak("नमस्ते", domain.LanguageHindi, func() { close(done) })
	<-done

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.requests[0].Voice != nil {
		t.Errorf("voice: got %+v, want engine default", engine.requests[0].Voice)
	}
}

func TestDriver_Available(t *testing.T) {
	engine := newFakeEngine()
	engine.avail = errors.New("no speaker")
	driver := speech.NewDriver(engine, discardLogger())

	if err := driver.Available(context.Background()); !errors.Is(err, domain.ErrSynthesisUnsupported) {
		t.Errorf("Available: got %v, want ErrSynthesisUnsupported", err)
	}
}
