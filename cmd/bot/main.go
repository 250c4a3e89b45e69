package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily_horoscope_bot/internal/app"
	"daily_horoscope_bot/internal/domain/horoscope"
	"daily_horoscope_bot/internal/infra/ai"
	"daily_horoscope_bot/internal/infra/config"
	"daily_horoscope_bot/internal/infra/corpus"
	idb "daily_horoscope_bot/internal/infra/database"
	"daily_horoscope_bot/internal/infra/logger"
	"daily_horoscope_bot/internal/infra/scheduler"
	"daily_horoscope_bot/internal/infra/telegram"
	"daily_horoscope_bot/internal/infra/timezone"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.WithField("environment", cfg.Environment).Info("Daily horoscope bot starting")

	// Database and repositories.
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	subscriberRepo := idb.NewPostgresSubscriberRepository(db)

	// Content resolution chain: corpus -> generative (optional) -> procedural.
	corpusStore := corpus.NewStore(cfg.CorpusDir, cfg.CorpusOverrideFile, log.WithField("component", "corpus"))

	var generativeResolver *ai.Resolver
	if cfg.UseAI {
		client, err := ai.NewClient(ai.ClientConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.AITimeout,
		})
		if err != nil {
			log.WithError(err).Warn("Generative content enabled but not usable, continuing without it")
		} else {
			generativeResolver = ai.NewResolver(client, cfg.AITimeout, log.WithField("component", "ai"))
			log.WithField("model", cfg.OpenAIModel).Info("Generative content resolver enabled")
		}
	}

	contentService := app.NewContentService(corpusStore, resolverOrNil(generativeResolver), log.WithField("component", "content"))

	// Telegram bot and transport adapter.
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Telebot handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.Fatalf("FATAL: Could not create Telegram bot: %v", err)
	}
	telegramClient := telegram.NewTelebotAdapter(bot)

	// Services.
	dispatchService := app.NewDispatchService(
		subscriberRepo,
		contentService,
		telegramClient,
		log.WithField("component", "dispatch"),
		cfg.TickWorkers,
		cfg.TickTimeout,
	)
	adminService := app.NewAdminService(
		subscriberRepo,
		telegramClient,
		corpusStore,
		log.WithField("component", "admin"),
		cfg.AdminTelegramID,
	)

	// Scheduler driving the minute tick.
	dispatchScheduler := scheduler.NewDispatchScheduler(dispatchService, log.WithField("component", "scheduler"), cfg.CronSpecTick)
	dispatchScheduler.Start()

	// Handlers.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tzLookup telegram.TimezoneResolver
	if cfg.TZLookupURL != "" {
		tzLookup = timezone.NewLookup(cfg.TZLookupURL)
	}
	telegram.RegisterSubscriberHandlers(ctx, bot, cfg, subscriberRepo, dispatchService, tzLookup, log.WithField("component", "handlers"))
	telegram.RegisterAdminHandlers(ctx, bot, adminService, cfg.AdminTelegramID, log.WithField("component", "handlers"))

	// Startup notice to the admin; best-effort.
	if err := telegramClient.SendMessage(ctx, cfg.AdminTelegramID, "🤖 Бот запущен и готов к работе!", nil); err != nil {
		log.WithError(err).Warn("Could not deliver startup notice to admin")
	}

	log.Info("Application setup complete. Bot and scheduler are running")
	go bot.Start()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	dispatchScheduler.Stop() // waits for a running tick
	bot.Stop()
	cancel()
	log.Info("Application shut down gracefully")
}

// resolverOrNil keeps a typed-nil *ai.Resolver from leaking into the content
// service as a non-nil interface.
func resolverOrNil(r *ai.Resolver) horoscope.Resolver {
	if r == nil {
		return nil
	}
	return r
}
