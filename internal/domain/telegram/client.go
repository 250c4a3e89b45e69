package telegram

import (
	"context"

	"gopkg.in/telebot.v3"
)

// Client defines an interface for sending messages via a Telegram bot.
// This helps in decoupling the application logic from the specific bot
// library; the dispatch service treats any non-nil error as a soft failure.
type Client interface {
	SendMessage(ctx context.Context, recipientChatID int64, text string, options *telebot.SendOptions) error
}
