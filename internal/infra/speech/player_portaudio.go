//go:build portaudio
// +build portaudio

package speech

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type PortAudioPlayer struct {
	framesPerBuffer int
}

func NewPlayer() *PortAudioPlayer {
	return &PortAudioPlayer{framesPerBuffer: 1024}
}

func (p *PortAudioPlayer) Available() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	if _, err := portaudio.DefaultOutputDevice(); err != nil {
		return fmt.Errorf("finding output device: %w", err)
	}
	return nil
}

func (p *PortAudioPlayer) Play(ctx context.Context, sampleRate int, pcm <-chan []byte) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	out := make([]int16, p.framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(out), out)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	defer stream.Stop()

	var pending []int16
	var leftover []byte

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-pcm:
			if !ok {
				if len(pending) == 0 {
					return nil
				}
				clear(out)
				copy(out, pending)
				return stream.Write()
			}

			data := append(leftover, chunk...)
			n := len(data) / 2
			for i := 0; i < n; i++ {
				pending = append(pending, int16(binary.LittleEndian.Uint16(data[2*i:])))
			}
			leftover = append([]byte(nil), data[2*n:]...)

			for len(pending) >= len(out) {
				copy(out, pending[:len(out)])
				pending = pending[len(out):]
				if err := stream.Write(); err != nil {
					return fmt.Errorf("writing stream: %w", err)
				}
			}
		}
	}
}
