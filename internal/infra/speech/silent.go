package speech

import (
	"context"
	"log/slog"
	"time"
)

// SilentEngine logs replies instead of speaking them. Each reply "plays"
// for the configured duration.
type SilentEngine struct {
	duration time.Duration
	logger   *slog.Logger
}

func NewSilentEngine(duration time.Duration, logger *slog.Logger) *SilentEngine {
	return &SilentEngine{duration: duration, logger: logger}
}

func (e *SilentEngine) Name() string { return "silent" }

func (e *SilentEngine) Voices() []Voice {
	return []Voice{
		{Name: "silent-en", Locale: "en-US"},
		{Name: "silent-hi", Locale: "hi-IN"},
	}
}

func (e *SilentEngine) Available(_ context.Context) error { return nil }

func (e *SilentEngine) Speak(ctx context.Context, req Request) error {
	e.logger.Info("speaking", "locale", req.Locale, "text", req.Text)
	if e.duration <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.duration):
		return nil
	}
}
