package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandEngine speaks through an external program such as espeak or the
// macOS say command. Both accept "-v <voice> <text>".
type CommandEngine struct {
	program string
	voices  []Voice
}

func NewCommandEngine(program string, voices []Voice) *CommandEngine {
	if program == "" {
		program = "espeak"
	}
	return &CommandEngine{program: program, voices: voices}
}

func (e *CommandEngine) Name() string {
	return "command:" + e.program
}

func (e *CommandEngine) Voices() []Voice {
	return e.voices
}

func (e *CommandEngine) Available(_ context.Context) error {
	if _, err := exec.LookPath(e.program); err != nil {
		return fmt.Errorf("looking up %s: %w", e.program, err)
	}
	return nil
}

// Speak runs the program and waits for it to exit. Cancelling ctx kills it.
func (e *CommandEngine) Speak(ctx context.Context, req Request) error {
	cmd := exec.CommandContext(ctx, e.program, e.args(req)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("running %s: %w (%s)", e.program, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (e *CommandEngine) args(req Request) []string {
	var args []string
	if req.Voice != nil {
		args = append(args, "-v", req.Voice.Name)
	}
	text := req.Text
	// Keep replies that start with a dash from being read as flags.
	if strings.HasPrefix(text, "-") {
		text = " " + text
	}
	return append(args, text)
}
