// Package browser connects a web page to the dialogue over a websocket. The
// page sends finalized speech-recognition transcripts and speaks replies
// with its own speechSynthesis voices.
package browser

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voicechat/internal/domain"
	"voicechat/internal/infra/speech"
)

//go:embed static/index.html
var static embed.FS

type inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
	ID   uint64 `json:"id"`
}

type turnMessage struct {
	Type string `json:"type"`
	Role string `json:"role"`
	Text string `json:"text"`
	ID   string `json:"id"`
}

type speakMessage struct {
	Type  string `json:"type"`
	ID    uint64 `json:"id"`
	Text  string `json:"text"`
	Lang  string `json:"lang"`
	Voice string `json:"voice,omitempty"`
}

type cancelMessage struct {
	Type string `json:"type"`
}

// Bridge serves one page at a time. A new connection replaces the previous
// one. It is a capture source, a speech engine and a turn sink at once.
type Bridge struct {
	logger   *slog.Logger
	voices   []speech.Voice
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	nextID  uint64
	current uint64
	pending map[uint64]chan struct{}

	transcripts chan domain.Capture
	done        chan struct{}
	stopOnce    sync.Once
}

func NewBridge(voices []speech.Voice, logger *slog.Logger) *Bridge {
	return &Bridge{
		logger: logger,
		voices: voices,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pending:     make(map[uint64]chan struct{}),
		transcripts: make(chan domain.Capture, 10),
		done:        make(chan struct{}),
	}
}

// Handler serves the page on / and the websocket on /ws.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", b.handleWS)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, static, "static/index.html")
	})
	return mux
}

// Serve runs an HTTP server for Handler until ctx is done.
func (b *Bridge) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	b.logger.Info("browser bridge listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving browser bridge: %w", err)
	}
	return nil
}

// Connected reports whether a page is attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	b.mu.Lock()
	previous := b.conn
	b.conn = conn
	b.releasePending()
	b.mu.Unlock()

	if previous != nil {
		b.logger.Info("browser connection replaced")
		previous.Close()
	} else {
		b.logger.Info("browser connected", "remote", r.RemoteAddr)
	}

	b.readLoop(conn)
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	defer b.detach(conn)

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Debug("browser read ended", "error", err)
			}
			return
		}

		switch msg.Type {
		case "transcript":
			capture := domain.Capture{Text: msg.Text, Source: "browser", ReceivedAt: time.Now()}
			select {
			case b.transcripts <- capture:
			case <-b.done:
				return
			}
		case "speech_ended":
			b.finish(msg.ID)
		default:
			b.logger.Debug("ignoring browser message", "type", msg.Type)
		}
	}
}

// detach forgets conn if it is still current and releases every playback
// waiting on it.
func (b *Bridge) detach(conn *websocket.Conn) {
	conn.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != conn {
		return
	}
	b.conn = nil
	b.releasePending()
	b.logger.Info("browser disconnected")
}

// releasePending must be called with mu held.
func (b *Bridge) releasePending() {
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
}

func (b *Bridge) finish(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.pending[id]; ok {
		close(ch)
		delete(b.pending, id)
	}
}

func (b *Bridge) send(v any) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.write(v)
}

// write must be called with writeMu held.
func (b *Bridge) write(v any) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return nil
	}

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("writing to browser: %w", err)
	}
	return nil
}

// speak writes msg and marks it as the page's current utterance. Holding
// writeMu across both keeps it ordered against cancelIfCurrent.
func (b *Bridge) speak(msg speakMessage) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.Lock()
	b.current = msg.ID
	b.mu.Unlock()

	return b.write(msg)
}

// cancelIfCurrent stops the page only when id is still its latest
// utterance; a newer speak has already replaced it on the page.
func (b *Bridge) cancelIfCurrent(id uint64) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.Lock()
	current := b.current == id
	b.mu.Unlock()
	if !current {
		return nil
	}

	return b.write(cancelMessage{Type: "cancel"})
}

// Capture source.

func (b *Bridge) Start(_ context.Context) error { return nil }

func (b *Bridge) Stop() error {
	b.stopOnce.Do(func() { close(b.done) })
	return nil
}

func (b *Bridge) Next(ctx context.Context) (domain.Capture, error) {
	select {
	case <-ctx.Done():
		return domain.Capture{}, ctx.Err()
	case <-b.done:
		return domain.Capture{}, domain.ErrCaptureClosed
	case c := <-b.transcripts:
		return c, nil
	}
}

// Speech engine.

func (b *Bridge) Name() string { return "browser" }

func (b *Bridge) Voices() []speech.Voice { return b.voices }

func (b *Bridge) Available(_ context.Context) error { return nil }

// Speak asks the page to speak req and waits for its speech_ended. With no
// page attached the reply completes at once.
func (b *Bridge) Speak(ctx context.Context, req speech.Request) error {
	b.mu.Lock()
	if b.conn == nil {
		b.mu.Unlock()
		return nil
	}
	b.nextID++
	id := b.nextID
	ended := make(chan struct{})
	b.pending[id] = ended
	b.mu.Unlock()

	msg := speakMessage{Type: "speak", ID: id, Text: req.Text, Lang: req.Locale}
	if req.Voice != nil {
		msg.Voice = req.Voice.Name
	}
	if err := b.speak(msg); err != nil {
		b.finish(id)
		return err
	}

	select {
	case <-ended:
		return nil
	case <-ctx.Done():
		b.finish(id)
		if err := b.cancelIfCurrent(id); err != nil {
			b.logger.Debug("sending cancel", "error", err)
		}
		return ctx.Err()
	}
}

// Turn sink.

func (b *Bridge) Publish(_ context.Context, turn domain.ConversationTurn) error {
	return b.send(turnMessage{Type: "turn", Role: string(turn.Role), Text: turn.Text, ID: turn.ID})
}
