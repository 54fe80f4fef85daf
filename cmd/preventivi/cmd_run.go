package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"preventivi/internal/bot"
	"preventivi/internal/config"
	"preventivi/internal/gsheets"
	"preventivi/internal/metrics"
	sentryutil "preventivi/internal/sentry"
	"preventivi/internal/tracker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// newRunCmd создаёт команду "preventivi run"
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Запустить бота и планировщик",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, log)
		},
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	sentryutil.Init(cfg.SentryDSN, cfg.SentryEnvironment, version, log)
	defer sentryutil.Flush()

	store, closeStore, err := openStore(ctx, cfg, true, log)
	if err != nil {
		return err
	}
	defer closeStore()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	log.Info().Str("account", api.Self.UserName).Msg("авторизован в Telegram")

	google, err := newGoogleClient(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []tracker.Option{tracker.WithLogger(log.With().Str("component", "tracker").Logger())}
	if cfg.SpreadsheetID != "" {
		opts = append(opts, tracker.WithJournal(gsheets.NewJournal(google, cfg.SpreadsheetID, "")))
		log.Info().Str("url", gsheets.GetSpreadsheetURL(cfg.SpreadsheetID)).Msg("журнал в Google Таблице включён")
	}

	tr := tracker.New(trackerConfig(cfg), bot.NewNotifier(api), store, opts...)
	if err := tr.Restore(ctx); err != nil {
		sentryutil.CaptureError(err, map[string]string{"stage": "restore"})
		log.Error().Err(err).Msg("состояние не восстановлено, начинаем с пустого")
	}

	matcher := tracker.NewMatcher(initialPhrases(cfg, log))
	log.Info().Strs("phrases", matcher.Phrases()).Msg("фразы подтверждения")
	if cfg.PhrasesFile != "" {
		go func() {
			if err := config.WatchPhrases(ctx, cfg.PhrasesFile, matcher.Set, log); err != nil {
				log.Warn().Err(err).Msg("перезагрузка фраз отключена")
			}
		}()
	}

	srv := startMetricsServer(cfg.MetricsAddr, log)

	scanner := gsheets.NewScanner(google, cfg.DriveRootFolderID, cfg.DriveRootFolderName,
		log.With().Str("component", "scanner").Logger())
	scheduler := bot.NewScheduler(tr, scanner, cfg.TickInterval, log.With().Str("component", "scheduler").Logger())
	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	b := bot.New(api, tr, matcher, bot.Config{
		OwnerID:      cfg.OwnerID,
		MaxReminders: cfg.MaxReminders,
	}, log.With().Str("component", "bot").Logger())
	b.Start(ctx, bot.UpdatesChannel(api))

	log.Info().Msg("остановка")
	api.StopReceivingUpdates()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("ошибка остановки сервера метрик")
		}
	}
	if err := tr.Flush(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("состояние не сохранено при остановке")
		return err
	}
	return nil
}

// startMetricsServer поднимает /metrics; пустой адрес отключает сервер
func startMetricsServer(addr string, log zerolog.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("сервер метрик запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("сервер метрик остановлен с ошибкой")
		}
	}()

	return srv
}
