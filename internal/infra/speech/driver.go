package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"voicechat/internal/domain"
)

// Driver holds at most one active playback. Every Speak bumps the
// generation; a playback whose generation is no longer current when it
// ends has been preempted and its completion is dropped.
type Driver struct {
	engine Engine
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

func NewDriver(engine Engine, logger *slog.Logger) *Driver {
	return &Driver{engine: engine, logger: logger}
}

func (d *Driver) Speak(text string, lang domain.Language, onComplete func()) {
	req := Request{Text: text, Locale: lang.Locale()}
	if v, ok := SelectVoice(d.engine.Voices(), req.Locale); ok {
		req.Voice = &v
	}

	ctx, cancel := context.WithCancel(context.Background())

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.logger.Debug("playback preempted", "engine", d.engine.Name(), "generation", d.generation)
	}
	d.generation++
	gen := d.generation
	d.cancel = cancel
	d.mu.Unlock()

	go d.play(ctx, cancel, gen, req, onComplete)
}

func (d *Driver) play(ctx context.Context, cancel context.CancelFunc, gen uint64, req Request, onComplete func()) {
	defer cancel()

	err := d.engine.Speak(ctx, req)

	d.mu.Lock()
	current := gen == d.generation
	if current {
		d.cancel = nil
	}
	d.mu.Unlock()

	if !current {
		return
	}

	// Synthesis failures are not reported to the caller. The reply counts
	// as finished so the dialogue moves on.
	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Debug("synthesis failed", "engine", d.engine.Name(), "error", err)
	}

	if onComplete != nil {
		onComplete()
	}
}

// Available reports domain.ErrSynthesisUnsupported when the engine cannot
// speak on this platform.
func (d *Driver) Available(ctx context.Context) error {
	if err := d.engine.Available(ctx); err != nil {
		return fmt.Errorf("%w: %s engine: %w", domain.ErrSynthesisUnsupported, d.engine.Name(), err)
	}
	return nil
}

// Stop cancels the active playback without running its completion.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Driver) active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}
