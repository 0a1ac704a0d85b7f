package telegram

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/relaytranslate/relaytranslate/internal/dispatch"
	"github.com/relaytranslate/relaytranslate/internal/translation"
)

// Dispatcher accepts messages for asynchronous translation. Submit may block
// while the dispatcher is saturated.
type Dispatcher interface {
	Submit(ctx context.Context, msg dispatch.Message) error
}

// BotConfig holds the collaborators of a Bot.
type BotConfig struct {
	API        API
	Dispatcher Dispatcher
	Commands   *Commands
	Messenger  dispatch.Messenger

	// Policy is only logged at startup.
	Policy translation.Policy

	// PollTimeout is the long-poll timeout in seconds.
	// Default: 60
	PollTimeout int

	Logger zerolog.Logger
}

// Bot is the Telegram receive loop.
type Bot struct {
	api         API
	dispatcher  Dispatcher
	commands    *Commands
	messenger   dispatch.Messenger
	policy      translation.Policy
	pollTimeout int
	logger      zerolog.Logger

	commandsInFlight sync.WaitGroup
}

// NewBot creates a Bot.
func NewBot(cfg BotConfig) *Bot {
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 60
	}
	messenger := cfg.Messenger
	if messenger == nil {
		messenger = NewMessenger(cfg.API)
	}

	return &Bot{
		api:         cfg.API,
		dispatcher:  cfg.Dispatcher,
		commands:    cfg.Commands,
		messenger:   messenger,
		policy:      cfg.Policy,
		pollTimeout: timeout,
		logger:      cfg.Logger,
	}
}

// Run receives updates until ctx is cancelled or the update channel closes.
// Text messages go to the dispatcher; commands are answered directly. Run
// returns after in-flight command replies finish.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	u.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(u)
	defer b.commandsInFlight.Wait()

	b.logger.Info().
		Strs("directions", hintsWithTargets(b.policy)).
		Msg("receiving updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info().Msg("stopped receiving updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		b.commandsInFlight.Add(1)
		go func() {
			defer b.commandsInFlight.Done()
			b.answerCommand(context.WithoutCancel(ctx), msg)
		}()
		return
	}

	if err := b.dispatcher.Submit(ctx, ToMessage(msg)); err != nil {
		b.logger.Warn().
			Err(err).
			Int64("chat_id", msg.Chat.ID).
			Int("message_id", msg.MessageID).
			Msg("message dropped")
	}
}

func (b *Bot) answerCommand(ctx context.Context, msg *tgbotapi.Message) {
	logger := b.logger.With().
		Int64("chat_id", msg.Chat.ID).
		Str("command", msg.Command()).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("command handler panicked")
		}
	}()

	if b.commands == nil {
		return
	}

	reply, ok := b.commands.Reply(ctx, msg.Command())
	if !ok {
		logger.Debug().Msg("unknown command ignored")
		return
	}

	if _, err := b.messenger.Reply(ctx, msg.Chat.ID, msg.MessageID, reply); err != nil {
		logger.Warn().Err(err).Msg("answering command")
		return
	}
	logger.Info().Msg("command answered")
}

// ToMessage converts a Bot API message into a pipeline message.
func ToMessage(msg *tgbotapi.Message) dispatch.Message {
	chatType := dispatch.ChatGroup
	if msg.Chat != nil && msg.Chat.IsPrivate() {
		chatType = dispatch.ChatDirect
	}

	var chatID int64
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}

	return dispatch.Message{
		ID:        msg.MessageID,
		ChatID:    chatID,
		ChatType:  chatType,
		Text:      msg.Text,
		Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
	}
}
