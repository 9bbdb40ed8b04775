package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"voicechat/internal/domain"
)

// Assistant connects a capture source to the dialogue for one session.
type Assistant struct {
	capture  CaptureSource
	stt      SpeechToText
	dialogue *Dialogue
	speaker  Speaker
	session  *domain.Session
	logger   *slog.Logger
}

func NewAssistant(
	capture CaptureSource,
	stt SpeechToText,
	dialogue *Dialogue,
	speaker Speaker,
	session *domain.Session,
	logger *slog.Logger,
) *Assistant {
	return &Assistant{
		capture:  capture,
		stt:      stt,
		dialogue: dialogue,
		speaker:  speaker,
		session:  session,
		logger:   logger,
	}
}

func (a *Assistant) Run(ctx context.Context) error {
	if err := a.speaker.Available(ctx); err != nil {
		return fmt.Errorf("checking speech output: %w", err)
	}
	defer a.speaker.Stop()

	a.logger.Info("starting capture source", "source", a.capture.Name())
	if err := a.capture.Start(ctx); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}
	defer a.capture.Stop()

	a.logger.Info("assistant ready, listening", "session", a.session.ID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := a.processOneCapture(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if errors.Is(err, domain.ErrCaptureUnsupported) || errors.Is(err, domain.ErrCaptureClosed) {
					return err
				}
				a.logger.Error("processing capture", "error", err)
			}
		}
	}
}

func (a *Assistant) processOneCapture(ctx context.Context) error {
	capture, err := a.capture.Next(ctx)
	if err != nil {
		return fmt.Errorf("getting capture: %w", err)
	}

	text := capture.Text
	if capture.IsAudio() {
		a.logger.Info("received audio", "bytes", len(capture.Audio), "source", capture.Source)

		text, err = a.stt.Transcribe(ctx, capture.Audio)
		if err != nil {
			return fmt.Errorf("transcribing: %w", err)
		}

		a.logger.Info("transcribed", "text", text)
	} else {
		a.logger.Info("received transcript", "text", text, "source", capture.Source)
	}

	if strings.TrimSpace(text) == "" && capture.IsAudio() {
		a.logger.Warn("empty transcription, skipping")
		return nil
	}

	return a.dialogue.Handle(ctx, a.session, text)
}
