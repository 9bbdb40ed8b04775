package application

import (
	"context"
	"fmt"

	"voicechat/internal/domain"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// NoopSTT is used when only text captures are expected (stdin, browser).
// It returns an error if called with actual audio data.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return "", fmt.Errorf("speech-to-text not configured: set openai.api_key to enable audio transcription")
}

// Speaker plays one reply at a time. Starting a new reply cancels the one in
// flight; onComplete runs once when playback finishes and never for a
// reply that was cut off.
type Speaker interface {
	Speak(text string, lang domain.Language, onComplete func())
	Available(ctx context.Context) error
	Stop()
}
