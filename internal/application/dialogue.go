package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"voicechat/internal/domain"
	"voicechat/internal/language"
)

// QuestionDelimiter separates conjoined questions in one raw transcript.
const QuestionDelimiter = " and "

// OverlapPolicy decides what happens to a transcript that arrives while an
// earlier one is still being answered.
type OverlapPolicy string

const (
	OverlapQueue  OverlapPolicy = "queue"
	OverlapReject OverlapPolicy = "reject"
)

// Dialogue answers raw transcripts one sub-question at a time. For every
// sub-question it appends the user turn, asks the answer service, appends
// the assistant turn and speaks the reply. The next sub-question is not
// asked until playback of the previous reply has completed.
type Dialogue struct {
	answers AnswerService
	speaker Speaker
	sink    TurnSink
	overlap OverlapPolicy
	logger  *slog.Logger

	// slot holds a token while a transcript is being handled.
	slot chan struct{}
}

func NewDialogue(
	answers AnswerService,
	speaker Speaker,
	sink TurnSink,
	overlap OverlapPolicy,
	logger *slog.Logger,
) *Dialogue {
	if sink == nil {
		sink = &NoopSink{}
	}
	if overlap != OverlapReject {
		overlap = OverlapQueue
	}
	return &Dialogue{
		answers: answers,
		speaker: speaker,
		sink:    sink,
		overlap: overlap,
		logger:  logger,
		slot:    make(chan struct{}, 1),
	}
}

// SplitTranscript partitions a raw transcript on QuestionDelimiter and trims
// each part. A transcript without the delimiter, including the empty one,
// yields a single utterance.
func SplitTranscript(transcript string) []domain.Utterance {
	parts := strings.Split(transcript, QuestionDelimiter)
	utterances := make([]domain.Utterance, 0, len(parts))
	for _, p := range parts {
		text := strings.TrimSpace(p)
		utterances = append(utterances, domain.Utterance{
			Text:     text,
			Language: language.Classify(text),
		})
	}
	return utterances
}

// Handle runs every sub-question of transcript to completion. It returns
// an error wrapping ctx.Err() if the context ends mid-sequence, and
// domain.ErrDialogueBusy when overlapping calls are rejected.
func (d *Dialogue) Handle(ctx context.Context, session *domain.Session, transcript string) error {
	if err := d.acquire(ctx); err != nil {
		return err
	}
	defer d.release()

	questions := SplitTranscript(transcript)

	ctx, span := tracer.Start(ctx, "dialogue.handle", trace.WithAttributes(
		attribute.String("session.id", session.ID),
		attribute.Int("dialogue.questions", len(questions)),
	))
	defer span.End()

	d.logger.Info("handling transcript", "session", session.ID, "questions", len(questions))

	for i, q := range questions {
		if err := d.runTurn(ctx, session, i, q); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("question %d of %d: %w", i+1, len(questions), err)
		}
	}

	return nil
}

func (d *Dialogue) runTurn(ctx context.Context, session *domain.Session, index int, q domain.Utterance) error {
	ctx, span := tracer.Start(ctx, "dialogue.turn", trace.WithAttributes(
		attribute.Int("turn.index", index),
		attribute.String("turn.question_language", string(q.Language)),
	))
	defer span.End()

	d.publish(ctx, session.Append(domain.RoleUser, q.Text, index))
	d.logger.Debug("asking", "index", index, "question", q.Text)

	answer := d.answers.Ask(ctx, q.Text)
	d.publish(ctx, session.Append(domain.RoleAssistant, answer, index))

	if err := ctx.Err(); err != nil {
		return err
	}

	lang := language.Classify(answer)
	span.SetAttributes(attribute.String("turn.answer_language", string(lang)))
	d.logger.Debug("speaking", "index", index, "language", lang)

	done := make(chan struct{})
	d.speaker.Speak(answer, lang, func() { close(done) })

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.speaker.Stop()
		return ctx.Err()
	}
}

func (d *Dialogue) publish(ctx context.Context, turn domain.ConversationTurn) {
	if err := d.sink.Publish(ctx, turn); err != nil {
		d.logger.Warn("publishing turn", "role", turn.Role, "error", err)
	}
}

func (d *Dialogue) acquire(ctx context.Context) error {
	if d.overlap == OverlapReject {
		select {
		case d.slot <- struct{}{}:
			return nil
		default:
			return domain.ErrDialogueBusy
		}
	}

	select {
	case d.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dialogue) release() {
	<-d.slot
}
