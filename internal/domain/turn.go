package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry of the conversation log. Turns are never
// edited once appended.
type ConversationTurn struct {
	ID        string
	Role      Role
	Text      string
	Question  int
	CreatedAt time.Time
}

// Session holds the state of one conversation. It is owned by the caller
// that drives the dialogue and passed into it explicitly.
type Session struct {
	ID        string
	StartedAt time.Time

	mu    sync.Mutex
	turns []ConversationTurn
}

func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// Append adds a turn to the end of the log and returns the stored copy.
func (s *Session) Append(role Role, text string, question int) ConversationTurn {
	turn := ConversationTurn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Question:  question,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()

	return turn
}

// Turns returns a snapshot of the log in append order.
func (s *Session) Turns() []ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
