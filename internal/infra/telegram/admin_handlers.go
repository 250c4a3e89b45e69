package telegram

import (
	"context"
	"fmt"
	"strings"

	"daily_horoscope_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, adminTelegramID int64, baseLogger *logrus.Entry) {
	b.Handle("/stats", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/stats",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		stats, err := adminService.Stats(ctx, c.Sender().ID)
		if err != nil {
			if err == app.ErrAdminNotAuthorized {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
			}
			handlerLogger.WithError(err).Error("Failed to read stats")
			return c.Send("Произошла ошибка при получении статистики.")
		}

		return c.Send(fmt.Sprintf(
			"📊 Статистика\n\nВсего подписчиков: %d\nАктивных: %d\nОтправлено сегодня: %d",
			stats.Total, stats.Active, stats.SentToday))
	})

	b.Handle("/reload", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/reload",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if err := adminService.ReloadCorpus(c.Sender().ID); err != nil {
			if err == app.ErrAdminNotAuthorized {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
			}
			handlerLogger.WithError(err).Error("Failed to reload corpus")
			return c.Send("Произошла ошибка при сбросе кэша контента.")
		}
		return c.Send("Кэш авторского контента сброшен. Файлы будут перечитаны при следующем обращении.")
	})

	b.Handle("/broadcast", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/broadcast",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
		}

		text := strings.TrimSpace(strings.Join(c.Args(), " "))
		if text == "" {
			return c.Send("Использование: /broadcast <текст сообщения>")
		}

		sent, failed, err := adminService.Broadcast(ctx, c.Sender().ID, text)
		if err != nil {
			handlerLogger.WithError(err).Error("Broadcast failed")
			return c.Send("Произошла ошибка при рассылке.")
		}
		handlerLogger.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("Broadcast finished")
		return c.Send(fmt.Sprintf("Рассылка завершена. Доставлено: %d, ошибок: %d.", sent, failed))
	})
}
