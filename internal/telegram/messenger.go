package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger sends and deletes chat messages through the Bot API. The Bot API
// client has no per-call context, so ctx is only checked before each call.
type Messenger struct {
	api API
}

// NewMessenger creates a Messenger.
func NewMessenger(api API) *Messenger {
	return &Messenger{api: api}
}

// Reply posts text in chatID, threaded under replyTo when non-zero.
func (m *Messenger) Reply(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
		msg.AllowSendingWithoutReply = true
	}

	sent, err := m.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("sending message to chat %d: %w", chatID, err)
	}
	return sent.MessageID, nil
}

// Delete removes a message sent by the bot.
func (m *Messenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("deleting message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}
