package sentryutil

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// Init настраивает Sentry. Пустой DSN отключает отправку, ошибка не фатальна.
func Init(dsn, environment, release string, log zerolog.Logger) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			event.User = sentry.User{}
			return event
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("sentry не инициализирован")
		return
	}
	if dsn == "" {
		log.Info().Msg("SENTRY_DSN пуст, отправка ошибок отключена")
	} else {
		log.Info().Msg("sentry инициализирован")
	}
}

// Flush дожидается отправки накопленных событий
func Flush() { sentry.Flush(2 * time.Second) }

// CaptureError отправляет ошибку с тегами
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Recover отправляет паническое значение в Sentry
func Recover(r interface{}, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CurrentHub().Recover(r)
	})
}
