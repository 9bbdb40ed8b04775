package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"voicechat/internal/domain"
)

// FileSource picks up captures dropped into a directory: .txt files hold a
// transcript, audio files are passed on for transcription. Consumed files
// are renamed with a .processed suffix.
type FileSource struct {
	dir       string
	processed map[string]bool
	mu        sync.Mutex
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{
		dir:       dir,
		processed: make(map[string]bool),
	}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating capture dir: %w", err)
	}
	return nil
}

func (f *FileSource) Stop() error {
	return nil
}

func (f *FileSource) Next(ctx context.Context) (domain.Capture, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		c, found, err := f.checkForNewFile()
		if err != nil {
			return domain.Capture{}, err
		}
		if found {
			return c, nil
		}

		select {
		case <-ctx.Done():
			return domain.Capture{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

var audioExtensions = map[string]bool{".wav": true, ".mp3": true, ".m4a": true, ".webm": true}

func (f *FileSource) checkForNewFile() (domain.Capture, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return domain.Capture{}, false, fmt.Errorf("reading dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && !audioExtensions[ext] {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		if f.processed[path] {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Capture{}, false, fmt.Errorf("reading file %s: %w", path, err)
		}

		f.processed[path] = true
		os.Rename(path, path+".processed")

		c := domain.Capture{Source: "file", ReceivedAt: time.Now()}
		if ext == ".txt" {
			c.Text = strings.TrimSpace(string(data))
		} else {
			c.Audio = data
		}
		return c, true, nil
	}

	return domain.Capture{}, false, nil
}
