package application

import "context"

// AnswerService turns one question into reply text. Implementations never
// fail: transport and decoding problems come back as a fallback answer.
// Each call is independent and carries no earlier turns.
type AnswerService interface {
	Ask(ctx context.Context, question string) string
}
