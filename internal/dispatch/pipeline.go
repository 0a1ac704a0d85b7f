package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/relaytranslate/relaytranslate/internal/events"
	"github.com/relaytranslate/relaytranslate/internal/langhint"
	"github.com/relaytranslate/relaytranslate/internal/telemetry"
	"github.com/relaytranslate/relaytranslate/internal/translation"
	"github.com/relaytranslate/relaytranslate/internal/worker"
)

// User-facing texts. Details of a failure are only logged.
const (
	processingText = "⏳ Translating..."
	failureText    = "⚠️ Translation failed, please try again later."
)

// PipelineConfig holds the collaborators of a Pipeline.
type PipelineConfig struct {
	Policy     translation.Policy
	Translator Translator
	Messenger  Messenger

	// Pool runs messages passed to Submit. Handle runs on the caller.
	Pool *worker.Pool

	// Publisher receives an event for every sent or failed message (optional).
	Publisher events.Publisher

	// ProcessingNotice enables the transient "translating" message.
	ProcessingNotice bool

	Metrics *telemetry.TranslationMetrics
	Logger  zerolog.Logger
}

// Pipeline handles inbound messages.
type Pipeline struct {
	policy     translation.Policy
	translator Translator
	messenger  Messenger
	pool       *worker.Pool
	publisher  events.Publisher
	notice     bool
	metrics    *telemetry.TranslationMetrics
	logger     zerolog.Logger

	inflight sync.WaitGroup
	stats    Stats
}

// Stats counts pipeline outcomes.
type Stats struct {
	Sent    atomic.Int64
	Skipped atomic.Int64
	Failed  atomic.Int64
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &Pipeline{
		policy:     cfg.Policy,
		translator: cfg.Translator,
		messenger:  cfg.Messenger,
		pool:       cfg.Pool,
		publisher:  publisher,
		notice:     cfg.ProcessingNotice,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Stats returns the live outcome counters.
func (p *Pipeline) Stats() *Stats {
	return &p.stats
}

// Submit queues msg on the worker pool and returns once it is queued. It
// blocks only while the queue is full, and fails if ctx ends first or the
// pool is shut down. A queued message does not observe cancellation of ctx,
// so it finishes during shutdown; use Wait to drain.
func (p *Pipeline) Submit(ctx context.Context, msg Message) error {
	detached := context.WithoutCancel(ctx)

	p.inflight.Add(1)
	err := p.pool.Submit(ctx, func(context.Context) {
		defer p.inflight.Done()
		p.Handle(detached, msg)
	})
	if err != nil {
		p.inflight.Done()
		return fmt.Errorf("queueing message %d: %w", msg.ID, err)
	}
	return nil
}

// Wait blocks until every submitted message has been handled or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight messages: %w", ctx.Err())
	}
}

// Handle runs msg through the pipeline and returns its terminal state. A
// panic while handling msg is recovered and reported as OutcomeFailed.
func (p *Pipeline) Handle(ctx context.Context, msg Message) (outcome Outcome) {
	logger := p.logger.With().
		Int64("chat_id", msg.ChatID).
		Int("message_id", msg.ID).
		Str("chat_type", string(msg.ChatType)).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("message handler panicked")
			outcome = OutcomeFailed
		}
		p.record(outcome)
	}()

	text := strings.TrimSpace(msg.Text)
	if reason := skipReason(text); reason != "" {
		logger.Debug().Str("reason", reason).Msg("message skipped")
		return OutcomeSkipped
	}

	hint := langhint.Detect(text)
	if hint == langhint.HintUnknown {
		logger.Debug().Str("reason", "unknown language").Msg("message skipped")
		return OutcomeSkipped
	}

	target, ok := p.policy.Target(hint)
	if !ok {
		logger.Debug().Str("hint", hint.String()).Str("reason", "no target").Msg("message skipped")
		return OutcomeSkipped
	}

	logger = logger.With().Str("source", hint.Code()).Str("target", string(target)).Logger()
	logger.Info().Msg("translating message")

	start := time.Now()
	noticeID := p.sendNotice(ctx, logger, msg)

	result := p.translator.Do(ctx, translation.Request{Text: text, Source: hint, Target: target})

	p.retractNotice(ctx, logger, msg.ChatID, noticeID)

	event := events.NewTranslationEvent()
	event.MessageID = msg.ID
	event.ChatID = msg.ChatID
	event.ChatType = string(msg.ChatType)
	event.Source = hint.Code()
	event.Target = string(target)
	event.InputChars = utf8.RuneCountInString(text)
	event.DurationMs = time.Since(start).Milliseconds()

	if !result.Success {
		logger.Warn().
			Str("error_kind", string(result.ErrorKind)).
			Msg("translation failed")

		if msg.ChatType == ChatGroup {
			bestEffort(logger, "send failure notice", func() error {
				_, err := p.messenger.Reply(ctx, msg.ChatID, msg.ID, failureText)
				return err
			})
		}

		event.Outcome = string(OutcomeFailed)
		event.ErrorKind = string(result.ErrorKind)
		p.publish(ctx, logger, event)
		return OutcomeFailed
	}

	if result.Text == text {
		logger.Debug().Str("reason", "translation identical to input").Msg("message skipped")
		return OutcomeSkipped
	}

	if _, err := p.messenger.Reply(ctx, msg.ChatID, msg.ID, FormatReply(target, result.Text)); err != nil {
		logger.Error().Err(fmt.Errorf("%w: %w", ErrDelivery, err)).Msg("sending translation")
		event.Outcome = string(OutcomeFailed)
		event.ErrorKind = "delivery"
		p.publish(ctx, logger, event)
		return OutcomeFailed
	}

	logger.Info().
		Dur("duration", time.Since(start)).
		Msg("translation sent")

	event.Outcome = string(OutcomeSent)
	p.publish(ctx, logger, event)
	return OutcomeSent
}

// FormatReply renders a translation for the chat.
func FormatReply(target translation.Language, text string) string {
	return fmt.Sprintf("🌐 %s:\n%s", target.DisplayName(), text)
}

func skipReason(text string) string {
	switch {
	case text == "":
		return "empty"
	case utf8.RuneCountInString(text) < MinTextLength:
		return "too short"
	case strings.HasPrefix(text, CommandPrefix):
		return "command"
	}
	return ""
}

func (p *Pipeline) sendNotice(ctx context.Context, logger zerolog.Logger, msg Message) int {
	if !p.notice {
		return 0
	}

	var id int
	bestEffort(logger, "send processing notice", func() error {
		var err error
		id, err = p.messenger.Reply(ctx, msg.ChatID, msg.ID, processingText)
		return err
	})
	return id
}

func (p *Pipeline) retractNotice(ctx context.Context, logger zerolog.Logger, chatID int64, noticeID int) {
	if noticeID == 0 {
		return
	}
	bestEffort(logger, "delete processing notice", func() error {
		return p.messenger.Delete(ctx, chatID, noticeID)
	})
}

func (p *Pipeline) publish(ctx context.Context, logger zerolog.Logger, event events.TranslationEvent) {
	bestEffort(logger, "publish translation event", func() error {
		return p.publisher.Publish(ctx, event)
	})
}

func (p *Pipeline) record(outcome Outcome) {
	switch outcome {
	case OutcomeSent:
		p.stats.Sent.Add(1)
	case OutcomeSkipped:
		p.stats.Skipped.Add(1)
	case OutcomeFailed:
		p.stats.Failed.Add(1)
	}
	p.metrics.RecordOutcome(string(outcome))
}

// bestEffort runs action and logs, but never propagates, its error or panic.
func bestEffort(logger zerolog.Logger, what string, action func() error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn().Interface("panic", r).Str("action", what).Msg("best-effort action panicked")
		}
	}()

	if err := action(); err != nil {
		logger.Warn().Err(err).Str("action", what).Msg("best-effort action failed")
	}
}
