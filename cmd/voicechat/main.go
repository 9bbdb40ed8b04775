package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicechat/config"
	"voicechat/internal/application"
	"voicechat/internal/domain"
	"voicechat/internal/infra/audio"
	"voicechat/internal/infra/browser"
	"voicechat/internal/infra/console"
	"voicechat/internal/infra/gemini"
	"voicechat/internal/infra/genai"
	"voicechat/internal/infra/openai"
	"voicechat/internal/infra/pushover"
	"voicechat/internal/infra/speech"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	// The bridge is shared when the page is both the capture source and
	// the speech engine.
	var bridge *browser.Bridge
	if cfg.Capture.Source == "browser" || cfg.Speech.Engine == "browser" {
		bridge = browser.NewBridge(speech.VoicesFromMap(cfg.Speech.VoiceMap()), logger)
		go func() {
			if err := bridge.Serve(ctx, cfg.Browser.Addr); err != nil {
				logger.Error("browser bridge error", "error", err)
			}
		}()
	}

	answers, err := createAnswerService(ctx, cfg.Gemini, logger)
	if err != nil {
		logger.Error("creating answer service", "error", err)
		os.Exit(1)
	}

	driver := speech.NewDriver(createEngine(cfg.Speech, bridge, logger), logger)
	captureSource := createCaptureSource(cfg.Capture, bridge, logger)

	var stt application.SpeechToText = &application.NoopSTT{}
	if cfg.OpenAI.APIKey != "" {
		stt = openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.Language)
	}

	sinks := application.MultiSink{console.NewPrinter(os.Stdout)}
	if bridge != nil {
		sinks = append(sinks, bridge)
	}
	if cfg.Pushover.Enabled {
		sinks = append(sinks, pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey))
	}

	session := domain.NewSession()
	dialogue := application.NewDialogue(
		answers,
		driver,
		sinks,
		application.OverlapPolicy(cfg.Dialogue.Overlap),
		logger,
	)
	assistant := application.NewAssistant(captureSource, stt, dialogue, driver, session, logger)

	logger.Info("starting voice chat",
		"session", session.ID,
		"capture", captureSource.Name(),
		"engine", cfg.Speech.Engine,
		"backend", cfg.Gemini.Backend,
	)

	err = assistant.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, domain.ErrCaptureClosed):
		logger.Info("capture source closed", "turns", session.Len())
	default:
		logger.Error("assistant error", "error", err)
		os.Exit(1)
	}
}

func createAnswerService(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (application.AnswerService, error) {
	if cfg.APIKey == "" {
		logger.Warn("no Gemini API key configured, every answer will be a network error")
	}

	switch cfg.Backend {
	case "genai":
		client, err := genai.NewClient(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("creating genai client: %w", err)
		}
		return client, nil
	case "rest":
		return gemini.NewClientWithURL(cfg.APIKey, cfg.Model, cfg.BaseURL, logger), nil
	default:
		logger.Warn("unknown gemini backend, using rest", "backend", cfg.Backend)
		return gemini.NewClientWithURL(cfg.APIKey, cfg.Model, cfg.BaseURL, logger), nil
	}
}

func createEngine(cfg config.SpeechConfig, bridge *browser.Bridge, logger *slog.Logger) speech.Engine {
	voices := speech.VoicesFromMap(cfg.VoiceMap())

	switch cfg.Engine {
	case "command":
		return speech.NewCommandEngine(cfg.Command, voices)
	case "deepgram":
		dg := cfg.Deepgram
		return speech.NewDeepgramEngine(dg.APIKey, speech.VoicesFromMap(dg.DeepgramVoices()), dg.SampleRate, speech.NewPlayer(), logger)
	case "browser":
		return bridge
	case "silent":
		return speech.NewSilentEngine(time.Second, logger)
	default:
		logger.Warn("unknown speech engine, using command", "engine", cfg.Engine)
		return speech.NewCommandEngine(cfg.Command, voices)
	}
}

func createCaptureSource(cfg config.CaptureConfig, bridge *browser.Bridge, logger *slog.Logger) application.CaptureSource {
	switch cfg.Source {
	case "stdin":
		return audio.NewLineSource(os.Stdin)
	case "http":
		return audio.NewHTTPSource(cfg.HTTPAddr, cfg.AuthToken, logger)
	case "file":
		return audio.NewFileSource(cfg.FileDir)
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, logger)
	case "browser":
		return bridge
	default:
		logger.Warn("unknown capture source, using stdin", "source", cfg.Source)
		return audio.NewLineSource(os.Stdin)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	// Turns are printed on stdout, logs go to stderr.
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
