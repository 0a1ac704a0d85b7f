// Package telegram connects the dispatch pipeline to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// DialFunc opens a session for token and verifies it can receive updates.
type DialFunc func(token string) (API, error)

// ConnectConfig holds the startup retry policy.
type ConnectConfig struct {
	Token string

	// MaxAttempts bounds the number of dials.
	// Default: 5
	MaxAttempts uint64

	// InitialInterval is the delay before the second attempt.
	// Default: 2 seconds
	InitialInterval time.Duration

	// MaxInterval caps the delay between attempts.
	// Default: 60 seconds
	MaxInterval time.Duration

	// Dial overrides the real Bot API dial (tests).
	Dial DialFunc

	Logger zerolog.Logger
}

// Connect dials the Bot API, retrying conflicts (another instance is polling
// with the same token) and network faults with exponential backoff. Auth
// failures are returned immediately.
func Connect(ctx context.Context, cfg ConnectConfig) (API, error) {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 2 * time.Second
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 60 * time.Second
	}
	dial := cfg.Dial
	if dial == nil {
		dial = Dial
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, cfg.MaxAttempts-1), ctx)

	var (
		api     API
		attempt uint64
	)

	operation := func() error {
		attempt++
		cfg.Logger.Info().
			Uint64("attempt", attempt).
			Uint64("max_attempts", cfg.MaxAttempts).
			Msg("connecting to telegram")

		conn, err := dial(cfg.Token)
		if err != nil {
			if !Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		api = conn
		return nil
	}

	notify := func(err error, wait time.Duration) {
		cfg.Logger.Warn().
			Err(err).
			Uint64("attempt", attempt).
			Dur("retry_in", wait).
			Msg("telegram connection failed")
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("connecting to telegram after %d attempt(s): %w", attempt, err)
	}

	return api, nil
}

// Retryable reports whether a dial error may succeed on a later attempt.
// Bot API errors other than auth and not-found are retried, as are
// transport errors.
func Retryable(err error) bool {
	code, ok := apiErrorCode(err)
	if !ok {
		return !errors.Is(err, context.Canceled)
	}
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	}
	return true
}

// IsConflict reports whether err is the Bot API's 409 for a second poller.
func IsConflict(err error) bool {
	code, ok := apiErrorCode(err)
	return ok && code == http.StatusConflict
}

func apiErrorCode(err error) (int, bool) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	return 0, false
}

// Dial authenticates with token, drops any pending updates and webhook, and
// probes getUpdates so a conflicting poller surfaces here rather than in the
// receive loop.
func Dial(token string) (API, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authenticating bot: %w", err)
	}

	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return nil, fmt.Errorf("dropping pending updates: %w", err)
	}

	probe := tgbotapi.NewUpdate(0)
	probe.Limit = 1
	if _, err := bot.GetUpdates(probe); err != nil {
		return nil, fmt.Errorf("probing updates: %w", err)
	}

	return bot, nil
}
