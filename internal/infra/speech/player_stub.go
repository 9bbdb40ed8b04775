//go:build !portaudio
// +build !portaudio

package speech

import (
	"context"
	"fmt"

	"voicechat/internal/domain"
)

// PortAudioPlayer stub when portaudio is not available
type PortAudioPlayer struct{}

func NewPlayer() *PortAudioPlayer {
	return &PortAudioPlayer{}
}

func (p *PortAudioPlayer) Available() error {
	return fmt.Errorf("%w: audio playback requires -tags portaudio", domain.ErrSynthesisUnsupported)
}

func (p *PortAudioPlayer) Play(_ context.Context, _ int, _ <-chan []byte) error {
	return p.Available()
}
