package telegram

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"daily_horoscope_bot/internal/app"
	"daily_horoscope_bot/internal/domain/horoscope"
	"daily_horoscope_bot/internal/domain/subscriber"
	"daily_horoscope_bot/internal/infra/config"
	idb "daily_horoscope_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// TimezoneResolver maps a city name to an IANA zone identifier. Optional:
// when nil, /settz accepts only identifiers that time.LoadLocation resolves.
type TimezoneResolver interface {
	Resolve(ctx context.Context, city string) (string, error)
}

var (
	birthDateRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	sendTimeRe  = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
)

// onboardingState tracks chats that were asked for their birth date and
// have not answered yet. In-memory only: a restart simply re-asks on the
// next /start.
type onboardingState struct {
	mu      sync.Mutex
	pending map[int64]bool
}

func (o *onboardingState) set(chatID int64)   { o.mu.Lock(); o.pending[chatID] = true; o.mu.Unlock() }
func (o *onboardingState) clear(chatID int64) { o.mu.Lock(); delete(o.pending, chatID); o.mu.Unlock() }
func (o *onboardingState) has(chatID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending[chatID]
}

// RegisterSubscriberHandlers registers the onboarding and settings commands.
func RegisterSubscriberHandlers(
	ctx context.Context,
	b *telebot.Bot,
	cfg *config.AppConfig,
	subRepo subscriber.Repository,
	dispatchService *app.DispatchService,
	tzLookup TimezoneResolver,
	baseLogger *logrus.Entry,
) {
	onboarding := &onboardingState{pending: make(map[int64]bool)}

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "/start", "sender_id": senderID})
		logCtx.Info("Command received")

		sub, err := subRepo.GetByTelegramID(ctx, senderID)
		if err == idb.ErrSubscriberNotFound {
			sub = &subscriber.Subscriber{
				TelegramID: senderID,
				FirstName:  c.Sender().FirstName,
				Timezone:   cfg.DefaultTimezone,
				Hour:       subscriber.DefaultHour,
				Minute:     subscriber.DefaultMinute,
				IsActive:   true,
			}
			if err := subRepo.Create(ctx, sub); err != nil {
				logCtx.WithError(err).Error("Failed to create subscriber")
				return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
			}
			logCtx.WithField("subscriber_id", sub.ID).Info("Subscriber created")
		} else if err != nil {
			logCtx.WithError(err).Error("Failed to look up subscriber")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}

		if !sub.HasSign() {
			onboarding.set(senderID)
			return c.Send("👋 Добро пожаловать! Я буду присылать вам персональный гороскоп раз в день.\n\n" +
				"Укажите дату рождения (ДД.ММ.ГГГГ), чтобы я определил ваш знак:")
		}

		return c.Send(fmt.Sprintf("С возвращением, %s! Ваш знак: %s. Ежедневный гороскоп приходит в %02d:%02d (%s).\n"+
			"Команды: /help", sub.FirstName, sub.Sign, sub.Hour, sub.Minute, sub.Timezone))
	})

	b.Handle(telebot.OnText, func(c telebot.Context) error {
		senderID := c.Sender().ID
		if !onboarding.has(senderID) {
			return nil
		}
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "onboarding_birth_date", "sender_id": senderID})

		m := birthDateRe.FindStringSubmatch(strings.TrimSpace(c.Text()))
		if m == nil {
			return c.Send("Формат: ДД.ММ.ГГГГ, например 07.04.1992")
		}
		var day, month, year int
		fmt.Sscanf(m[1], "%d", &day)
		fmt.Sscanf(m[2], "%d", &month)
		fmt.Sscanf(m[3], "%d", &year)

		birth := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if birth.Day() != day || int(birth.Month()) != month || year < 1900 || birth.After(time.Now()) {
			return c.Send("Проверьте дату, пожалуйста.")
		}

		sub, err := subRepo.GetByTelegramID(ctx, senderID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to look up subscriber for birth date")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте /start ещё раз.")
		}

		sign := horoscope.SignByBirthDate(day, month)
		sub.BirthDate = sql.NullTime{Time: birth, Valid: true}
		sub.Sign = string(sign)
		if err := subRepo.Update(ctx, sub); err != nil {
			logCtx.WithError(err).Error("Failed to save birth date")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}
		onboarding.clear(senderID)

		logCtx.WithField("sign", string(sign)).Info("Subscriber onboarded")
		return c.Send(fmt.Sprintf("Готово! Ваш знак: %s ✨\n\n"+
			"Гороскоп будет приходить ежедневно в %02d:%02d (%s).\n"+
			"Изменить время: /settime ЧЧ:ММ, часовой пояс: /settz, справка: /help",
			sign, sub.Hour, sub.Minute, sub.Timezone))
	})

	b.Handle("/settime", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "/settime", "sender_id": senderID})

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Использование: /settime ЧЧ:ММ, например /settime 08:30")
		}
		m := sendTimeRe.FindStringSubmatch(args[0])
		if m == nil {
			return c.Send("Формат времени: ЧЧ:ММ (00:00 – 23:59)")
		}
		var hour, minute int
		fmt.Sscanf(m[1], "%d", &hour)
		fmt.Sscanf(m[2], "%d", &minute)

		sub, err := subRepo.GetByTelegramID(ctx, senderID)
		if err != nil {
			return replyLookupError(c, logCtx, err)
		}
		sub.Hour = hour
		sub.Minute = minute
		if err := subRepo.Update(ctx, sub); err != nil {
			logCtx.WithError(err).Error("Failed to update delivery time")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}

		logCtx.WithFields(logrus.Fields{"hour": hour, "minute": minute}).Info("Delivery time updated")
		return c.Send(fmt.Sprintf("Готово! Ежедневный гороскоп будет приходить в %02d:%02d (%s).", hour, minute, sub.Timezone))
	})

	b.Handle("/settz", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "/settz", "sender_id": senderID})

		arg := strings.TrimSpace(strings.Join(c.Args(), " "))
		if arg == "" {
			return c.Send("Использование: /settz <часовой пояс или город>, например /settz Europe/Moscow")
		}

		zone := arg
		if _, err := time.LoadLocation(zone); err != nil {
			if tzLookup == nil {
				return c.Send("Не удалось распознать часовой пояс. Укажите идентификатор вида Europe/Moscow.")
			}
			resolved, lookupErr := tzLookup.Resolve(ctx, arg)
			if lookupErr != nil {
				logCtx.WithError(lookupErr).WithField("query", arg).Warn("Timezone lookup failed")
				return c.Send("Не удалось определить часовой пояс по этому названию. Укажите идентификатор вида Europe/Moscow.")
			}
			zone = resolved
		}

		sub, err := subRepo.GetByTelegramID(ctx, senderID)
		if err != nil {
			return replyLookupError(c, logCtx, err)
		}
		sub.Timezone = zone
		if err := subRepo.Update(ctx, sub); err != nil {
			logCtx.WithError(err).Error("Failed to update timezone")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}

		logCtx.WithField("timezone", zone).Info("Timezone updated")
		return c.Send(fmt.Sprintf("Готово! Часовой пояс: %s. Гороскоп приходит в %02d:%02d по местному времени.", zone, sub.Hour, sub.Minute))
	})

	b.Handle("/stop", func(c telebot.Context) error {
		return setActive(ctx, c, subRepo, baseLogger, false,
			"Рассылка остановлена. Вернуться: /resume")
	})

	b.Handle("/resume", func(c telebot.Context) error {
		return setActive(ctx, c, subRepo, baseLogger, true,
			"Рассылка возобновлена! Гороскоп снова будет приходить ежедневно.")
	})

	b.Handle("/today", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "/today", "sender_id": senderID})
		logCtx.Info("Command received")

		sub, err := subRepo.GetByTelegramID(ctx, senderID)
		if err != nil {
			return replyLookupError(c, logCtx, err)
		}
		if !sub.HasSign() {
			return c.Send("Сначала укажите дату рождения: /start")
		}
		if err := dispatchService.SendNow(ctx, sub); err != nil {
			logCtx.WithError(err).Error("On-demand send failed")
			return c.Send("Не удалось отправить гороскоп. Пожалуйста, попробуйте позже.")
		}
		return nil
	})

	b.Handle("/profile", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "/profile", "sender_id": senderID})

		sub, err := subRepo.GetByTelegramID(ctx, senderID)
		if err != nil {
			return replyLookupError(c, logCtx, err)
		}

		sign := sub.Sign
		if sign == "" {
			sign = "—"
		}
		birth := "—"
		if sub.BirthDate.Valid {
			birth = sub.BirthDate.Time.Format("02.01.2006")
		}
		status := "включена"
		if !sub.IsActive {
			status = "остановлена (/resume)"
		}
		return c.Send(fmt.Sprintf(
			"👤 Профиль\n\nЗнак: %s\nДата рождения: %s\nЧасовой пояс: %s\nЕжедневно в: %02d:%02d\nРассылка: %s",
			sign, birth, sub.Timezone, sub.Hour, sub.Minute, status))
	})

	b.Handle("/help", func(c telebot.Context) error {
		return c.Send("Доступные команды:\n" +
			"/start — настройка профиля\n" +
			"/today — гороскоп на сегодня прямо сейчас\n" +
			"/settime ЧЧ:ММ — время ежедневной отправки\n" +
			"/settz <пояс или город> — часовой пояс\n" +
			"/profile — текущие настройки\n" +
			"/stop — остановить рассылку\n" +
			"/resume — возобновить рассылку")
	})
}

func setActive(ctx context.Context, c telebot.Context, subRepo subscriber.Repository, baseLogger *logrus.Entry, active bool, reply string) error {
	senderID := c.Sender().ID
	handler := "/stop"
	if active {
		handler = "/resume"
	}
	logCtx := baseLogger.WithFields(logrus.Fields{"handler": handler, "sender_id": senderID})
	logCtx.Info("Command received")

	sub, err := subRepo.GetByTelegramID(ctx, senderID)
	if err != nil {
		return replyLookupError(c, logCtx, err)
	}
	if sub.IsActive == active {
		return c.Send(reply)
	}
	sub.IsActive = active
	if err := subRepo.Update(ctx, sub); err != nil {
		logCtx.WithError(err).Error("Failed to toggle active flag")
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}
	return c.Send(reply)
}

func replyLookupError(c telebot.Context, logCtx *logrus.Entry, err error) error {
	if err == idb.ErrSubscriberNotFound {
		return c.Send("Сначала настройте профиль: /start")
	}
	logCtx.WithError(err).Error("Failed to look up subscriber")
	return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
}
