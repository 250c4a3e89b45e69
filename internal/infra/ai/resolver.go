package ai

import (
	"context"
	"fmt"
	"time"

	"daily_horoscope_bot/internal/domain/horoscope"

	"github.com/sirupsen/logrus"
)

const systemPrompt = "Ты — астрологический помощник. Пиши кратко, дружелюбно и по-деловому. " +
	"Избегай пугающих формулировок и эзотерических страшилок. " +
	"Давай 1–2 чётких вывода и 1 практический совет «что сделать». " +
	"Тон: поддерживающий, современный, без канцелярита."

const dailyPromptFormat = "Ежедневный гороскоп для знака %s на %s. " +
	"Структура: Тема дня, Работа, Отношения, Финансы, Энергия, Совет."

// Resolver produces a generated daily horoscope through the Client. Any
// failure (timeout, transport error, malformed response) is soft: logged by
// the chain and treated the same as an absent entry.
type Resolver struct {
	client  *Client
	timeout time.Duration
	log     *logrus.Entry
}

func NewResolver(client *Client, timeout time.Duration, log *logrus.Entry) *Resolver {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Resolver{client: client, timeout: timeout, log: log}
}

// Resolve implements horoscope.Resolver.
func (r *Resolver) Resolve(ctx context.Context, sign horoscope.Sign, isoDate string) horoscope.Outcome {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.client.Complete(ctx, systemPrompt, fmt.Sprintf(dailyPromptFormat, sign, isoDate))
	if err != nil {
		return horoscope.Failed(fmt.Errorf("generative resolver: %w", err))
	}
	if text == "" {
		return horoscope.Failed(fmt.Errorf("generative resolver: empty reply"))
	}
	return horoscope.Resolved(horoscope.ProvenanceGenerative, text)
}
