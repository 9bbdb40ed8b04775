package application

import (
	"context"

	"voicechat/internal/domain"
)

// CaptureSource delivers finalized transcripts or recorded audio, one per
// listening session.
type CaptureSource interface {
	Start(ctx context.Context) error
	Stop() error
	Next(ctx context.Context) (domain.Capture, error)
	Name() string
}

type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
	}
}
