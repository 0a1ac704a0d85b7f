// Package events publishes a record of every translated or failed message.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TranslationEvent describes one dispatched message. Message text is not
// included.
type TranslationEvent struct {
	ID         string    `json:"id"`
	MessageID  int       `json:"message_id"`
	ChatID     int64     `json:"chat_id"`
	ChatType   string    `json:"chat_type"`
	Source     string    `json:"source"`
	Target     string    `json:"target"`
	Outcome    string    `json:"outcome"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	InputChars int       `json:"input_chars"`
	DurationMs int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTranslationEvent fills in ID and OccurredAt.
func NewTranslationEvent() TranslationEvent {
	return TranslationEvent{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC(),
	}
}

// Encode returns the JSON wire form of the event.
func (e TranslationEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher receives translation events.
type Publisher interface {
	Publish(ctx context.Context, event TranslationEvent) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, TranslationEvent) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
