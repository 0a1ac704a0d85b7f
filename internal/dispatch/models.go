// Package dispatch runs the per-message translation pipeline: skip rules,
// language detection, target selection, translation on the worker pool and
// delivery of the reply.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/relaytranslate/relaytranslate/internal/translation"
)

// ErrDelivery wraps failures to send a message back to the chat.
var ErrDelivery = errors.New("delivery failed")

// ChatType distinguishes one-to-one conversations from multi-party ones.
type ChatType string

const (
	ChatDirect ChatType = "direct"
	ChatGroup  ChatType = "group"
)

// Message is an inbound chat message. It is owned by the chat adapter and
// never modified by the pipeline.
type Message struct {
	ID        int
	ChatID    int64
	ChatType  ChatType
	Text      string
	Timestamp time.Time
}

// Outcome is the terminal state of a message in the pipeline.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// CommandPrefix marks messages routed to the command handler instead.
const CommandPrefix = "/"

// MinTextLength is the minimum number of runes a message needs to be
// considered for translation.
const MinTextLength = 2

// Messenger sends and deletes chat messages.
type Messenger interface {
	// Reply posts text in chatID as a reply to replyTo and returns the ID of
	// the new message.
	Reply(ctx context.Context, chatID int64, replyTo int, text string) (int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// Translator runs one translation request. Failures are reported through
// Result.ErrorKind.
type Translator interface {
	Do(ctx context.Context, req translation.Request) translation.Result
}
