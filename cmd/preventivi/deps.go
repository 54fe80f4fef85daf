package main

import (
	"context"
	"database/sql"
	"fmt"

	"preventivi/internal/config"
	"preventivi/internal/gsheets"
	"preventivi/internal/logutils"
	"preventivi/internal/repository"
	"preventivi/internal/tracker"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// setup загружает конфигурацию и создаёт логгер
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	log, err := logutils.New(cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return cfg, log.With().Str("service", "preventivi").Logger(), nil
}

// openStore открывает хранилище состояния; close освобождает подключение к БД.
// owner включает перенос повреждённого файла, команды отчётов его не меняют.
func openStore(ctx context.Context, cfg *config.Config, owner bool, log zerolog.Logger) (tracker.Store, func(), error) {
	if cfg.StoreDriver != repository.DriverPostgres {
		var opts []repository.FileOption
		if owner {
			opts = append(opts, repository.WithCorruptBackup())
		}
		store, err := repository.Open(cfg.StoreDriver, cfg.StatePath, nil, opts...)
		if err != nil {
			return nil, nil, err
		}
		if fs, ok := store.(*repository.FileStore); ok {
			log.Info().Str("path", fs.Path()).Msg("состояние в файле")
		}
		return store, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("ошибка закрытия БД")
		}
	}

	if err := db.PingContext(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("ошибка проверки подключения к БД: %w", err)
	}

	pg := repository.NewPostgresStore(db)
	if err := pg.Migrate(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("подключено к PostgreSQL")

	return pg, closeDB, nil
}

// newGoogleClient создаёт клиент Drive/Sheets из credentials сервисного аккаунта
func newGoogleClient(ctx context.Context, cfg *config.Config) (*gsheets.Client, error) {
	creds, err := cfg.GoogleCredentials()
	if err != nil {
		return nil, err
	}
	return gsheets.NewClient(ctx, creds)
}

// initialPhrases берёт фразы из файла, если он задан и не пуст
func initialPhrases(cfg *config.Config, log zerolog.Logger) []string {
	if cfg.PhrasesFile == "" {
		return cfg.ConfirmPhrases
	}

	phrases, err := config.ReadPhrasesFile(cfg.PhrasesFile)
	if err != nil || len(phrases) == 0 {
		log.Warn().Err(err).Str("path", cfg.PhrasesFile).Msg("файл фраз недоступен, используем CONFIRM_PHRASES")
		return cfg.ConfirmPhrases
	}
	return phrases
}

// restoreTracker трекер без отправки сообщений, для команд отчётов
func restoreTracker(ctx context.Context, cfg *config.Config, store tracker.Store, log zerolog.Logger) (*tracker.Tracker, error) {
	tr := tracker.New(trackerConfig(cfg), discardNotifier{}, store, tracker.WithLogger(log))
	if err := tr.Restore(ctx); err != nil {
		return nil, err
	}
	return tr, nil
}

func trackerConfig(cfg *config.Config) tracker.Config {
	return tracker.Config{
		ReminderInterval: cfg.ReminderInterval,
		MaxReminders:     cfg.MaxReminders,
		Operator:         cfg.OwnerID,
	}
}

type discardNotifier struct{}

func (discardNotifier) Send(context.Context, int64, string) error { return nil }
