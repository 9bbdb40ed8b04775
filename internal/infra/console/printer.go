// Package console shows conversation turns on a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"voicechat/internal/domain"
)

type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Publish(_ context.Context, turn domain.ConversationTurn) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintf(p.w, "%s: %s\n", turn.Role, turn.Text); err != nil {
		return fmt.Errorf("writing turn: %w", err)
	}
	return nil
}
