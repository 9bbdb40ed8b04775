package audio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"voicechat/internal/domain"
)

// LineSource reads one finalized transcript per line, typically from
// stdin. Blank lines are skipped; end of input closes the source.
type LineSource struct {
	r     io.Reader
	lines chan string
	errs  chan error
	done  chan struct{}
	once  sync.Once
	stop  sync.Once
}

func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{
		r:     r,
		lines: make(chan string),
		errs:  make(chan error, 1),
		done:  make(chan struct{}),
	}
}

func (l *LineSource) Name() string { return "line" }

func (l *LineSource) Start(_ context.Context) error {
	l.once.Do(func() { go l.scan() })
	return nil
}

// Stop releases the reader goroutine once it has a line to hand over. A
// read already blocked on r returns only when r does.
func (l *LineSource) Stop() error {
	l.stop.Do(func() { close(l.done) })
	return nil
}

func (l *LineSource) scan() {
	defer close(l.lines)

	scanner := bufio.NewScanner(l.r)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		select {
		case l.lines <- text:
		case <-l.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		l.errs <- fmt.Errorf("reading lines: %w", err)
	}
}

func (l *LineSource) Next(ctx context.Context) (domain.Capture, error) {
	select {
	case <-l.done:
		return domain.Capture{}, domain.ErrCaptureClosed
	default:
	}

	select {
	case <-ctx.Done():
		return domain.Capture{}, ctx.Err()
	case <-l.done:
		return domain.Capture{}, domain.ErrCaptureClosed
	case text, ok := <-l.lines:
		if !ok {
			select {
			case err := <-l.errs:
				return domain.Capture{}, fmt.Errorf("%w: %w", domain.ErrCaptureClosed, err)
			default:
				return domain.Capture{}, domain.ErrCaptureClosed
			}
		}
		return domain.Capture{Text: text, Source: "line", ReceivedAt: time.Now()}, nil
	}
}
