package telegram

import (
	"context"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Telegram allows roughly 30 messages per second bot-wide; stay under it.
const (
	sendRatePerSecond = 25
	sendBurst         = 5
)

// TelebotAdapter implements the domain telegram.Client interface using the
// gopkg.in/telebot.v3 library, pacing outbound sends with a token-bucket
// limiter shared across the tick workers and the broadcast path.
type TelebotAdapter struct {
	bot     *telebot.Bot
	limiter *rate.Limiter
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(sendRatePerSecond), sendBurst),
	}
}

// SendMessage sends a text message to the specified recipient.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, recipientChatID int64, text string, options *telebot.SendOptions) error {
	if err := tba.limiter.Wait(ctx); err != nil {
		return err
	}
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID}
	_, err := tba.bot.Send(recipient, text, options)
	return err
}
