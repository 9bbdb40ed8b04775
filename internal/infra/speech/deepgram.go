package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

// Player plays a stream of little-endian 16-bit mono PCM until the channel
// closes or ctx is cancelled.
type Player interface {
	Available() error
	Play(ctx context.Context, sampleRate int, pcm <-chan []byte) error
}

// DeepgramEngine synthesizes with Deepgram's streaming speak API and plays
// the PCM locally. Voices map locales to Aura model names.
type DeepgramEngine struct {
	apiKey     string
	voices     []Voice
	sampleRate int
	player     Player
	logger     *slog.Logger
}

const defaultDeepgramModel = "aura-2-thalia-en"

func NewDeepgramEngine(apiKey string, voices []Voice, sampleRate int, player Player, logger *slog.Logger) *DeepgramEngine {
	if sampleRate == 0 {
		sampleRate = 24000
	}
	return &DeepgramEngine{
		apiKey:     apiKey,
		voices:     voices,
		sampleRate: sampleRate,
		player:     player,
		logger:     logger,
	}
}

func (e *DeepgramEngine) Name() string { return "deepgram" }

func (e *DeepgramEngine) Voices() []Voice { return e.voices }

func (e *DeepgramEngine) Available(_ context.Context) error {
	if e.apiKey == "" {
		return errors.New("deepgram: API key missing")
	}
	return e.player.Available()
}

func (e *DeepgramEngine) Speak(ctx context.Context, req Request) error {
	if req.Text == "" {
		return nil
	}

	model := defaultDeepgramModel
	if req.Voice != nil {
		model = req.Voice.Name
	}

	pcm := make(chan []byte, 4096)
	cb := newSpeakCallback(pcm)

	options := &clientinterfaces.WSSpeakOptions{
		Model:      model,
		Encoding:   "linear16",
		SampleRate: e.sampleRate,
	}

	dg, err := speak.NewWSUsingCallback(ctx, e.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
	if err != nil {
		return fmt.Errorf("deepgram: create ws client: %w", err)
	}
	defer dg.Stop()
	defer cb.finish()

	if ok := dg.Connect(); !ok {
		return errors.New("deepgram: connect failed")
	}

	if err := dg.SpeakWithText(req.Text); err != nil {
		return fmt.Errorf("deepgram: speak text: %w", err)
	}
	if err := dg.Flush(); err != nil {
		return fmt.Errorf("deepgram: flush: %w", err)
	}

	played := make(chan error, 1)
	go func() { played <- e.player.Play(ctx, e.sampleRate, pcm) }()

	select {
	case <-ctx.Done():
		cb.finish()
		<-played
		return ctx.Err()
	case <-cb.flushed:
		cb.finish()
	case err := <-played:
		cb.finish()
		return err
	}

	return <-played
}

// speakCallback forwards binary frames into pcm until Deepgram confirms the
// flush, which means all audio for the text has been sent. A full pcm
// channel blocks the sender until the player catches up or finish runs.
type speakCallback struct {
	mu       sync.Mutex
	pcm      chan []byte
	done     bool
	stop     chan struct{}
	inflight sync.WaitGroup
	flushed  chan struct{}
	once     sync.Once
}

func newSpeakCallback(pcm chan []byte) *speakCallback {
	return &speakCallback{
		pcm:     pcm,
		stop:    make(chan struct{}),
		flushed: make(chan struct{}),
	}
}

// finish releases blocked senders and closes pcm once none remain.
func (s *speakCallback) finish() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	close(s.stop)
	s.mu.Unlock()

	s.inflight.Wait()
	close(s.pcm)
}

func (s *speakCallback) Binary(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	b := make([]byte, len(data))
	copy(b, data)

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	select {
	case s.pcm <- b:
	case <-s.stop:
	}
	return nil
}

func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error {
	s.once.Do(func() { close(s.flushed) })
	return nil
}

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *speakCallback) UnhandledEvent([]byte) error                    { return nil }
