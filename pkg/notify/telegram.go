package notify

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramBot is the slice of the bot API the notifier needs; it keeps the
// real client mockable in tests.
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotFactory creates TelegramBot instances (allows mocking).
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return bot, nil
}

// TelegramNotifier sends emergency alerts to a caregiver chat.
type TelegramNotifier struct {
	bot    TelegramBot
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithFactory(token, chatID, defaultBotFactory)
}

// NewTelegramNotifierWithFactory creates a notifier with a custom bot factory
// (for testing).
func NewTelegramNotifierWithFactory(token string, chatID int64, factory BotFactory) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("notify: telegram token is required")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("notify: telegram chat id is required")
	}
	bot, err := factory(token, tgbotapi.APIEndpoint, http.DefaultClient)
	if err != nil {
		return nil, fmt.Errorf("notify: create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(_ context.Context, alert Alert) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatAlert(alert))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	return nil
}
