package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит конфигурацию приложения
type Config struct {
	BotToken string
	OwnerID  int64 // чат оператора, 0 отключает сводки

	// Google
	GoogleCredentialsPath string
	GoogleCredentialsJSON string
	DriveRootFolderID     string
	DriveRootFolderName   string
	SpreadsheetID         string

	// Эскалация
	ReminderInterval time.Duration
	MaxReminders     int
	TickInterval     time.Duration
	ConfirmPhrases   []string
	PhrasesFile      string

	// Хранилище
	StoreDriver string // file | postgres
	StatePath   string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Наблюдаемость
	MetricsAddr       string
	SentryDSN         string
	SentryEnvironment string
	LogLevel          string
}

const (
	defaultPhrases = "ok,confermo,va bene,accetto,ricevuto"
)

// Load загружает конфигурацию из переменных окружения или .env файла
func Load() (*Config, error) {
	// .env необязателен, переменные окружения имеют приоритет
	_ = godotenv.Load()

	cfg := &Config{
		BotToken: getEnv("BOT_TOKEN", ""),

		GoogleCredentialsPath: getEnv("GOOGLE_CREDENTIALS_PATH", "google-credentials.json"),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
		DriveRootFolderID:     getEnv("DRIVE_ROOT_FOLDER_ID", ""),
		DriveRootFolderName:   getEnv("DRIVE_ROOT_FOLDER_NAME", "PreventiviTelegram"),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),

		PhrasesFile: getEnv("PHRASES_FILE", ""),

		StoreDriver: getEnv("STORE_DRIVER", "file"),
		StatePath:   getEnv("STATE_PATH", "data/preventivi.json"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "postgres"),

		MetricsAddr:       getEnv("METRICS_ADDR", ":9090"),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "production"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),

		ConfirmPhrases: SplitPhrases(getEnv("CONFIRM_PHRASES", defaultPhrases)),
	}

	var err error
	if cfg.OwnerID, err = getInt64("OWNER_ID", 0); err != nil {
		return nil, err
	}
	if cfg.ReminderInterval, err = getDuration("REMINDER_INTERVAL", 4*time.Hour); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = getDuration("TICK_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}
	maxReminders, err := getInt64("MAX_REMINDERS", 12)
	if err != nil {
		return nil, err
	}
	cfg.MaxReminders = int(maxReminders)

	return cfg, nil
}

// Validate проверяет значения, нужные для запуска бота
func (c *Config) Validate() error {
	var errs []error

	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN не задан"))
	}
	if c.ReminderInterval <= 0 {
		errs = append(errs, errors.New("REMINDER_INTERVAL должен быть положительным"))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("TICK_INTERVAL должен быть положительным"))
	}
	if c.TickInterval > c.ReminderInterval {
		errs = append(errs, errors.New("TICK_INTERVAL не может превышать REMINDER_INTERVAL"))
	}
	if c.MaxReminders < 0 {
		errs = append(errs, errors.New("MAX_REMINDERS не может быть отрицательным"))
	}
	if len(c.ConfirmPhrases) == 0 && c.PhrasesFile == "" {
		errs = append(errs, errors.New("не задано ни одной фразы подтверждения"))
	}
	switch c.StoreDriver {
	case "file", "postgres":
	default:
		errs = append(errs, fmt.Errorf("неизвестный STORE_DRIVER %q", c.StoreDriver))
	}

	return errors.Join(errs...)
}

// DSN возвращает строку подключения к базе данных
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// GoogleCredentials возвращает JSON сервисного аккаунта:
// из GOOGLE_CREDENTIALS, иначе из файла
func (c *Config) GoogleCredentials() ([]byte, error) {
	if c.GoogleCredentialsJSON != "" {
		return []byte(c.GoogleCredentialsJSON), nil
	}
	data, err := os.ReadFile(c.GoogleCredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать credentials: %w", err)
	}
	return data, nil
}

// SplitPhrases разбирает список фраз через запятую
func SplitPhrases(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: некорректное число %q", key, v)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: некорректная длительность %q", key, v)
	}
	return d, nil
}
