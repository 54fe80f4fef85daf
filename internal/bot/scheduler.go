package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"preventivi/internal/metrics"
	sentryutil "preventivi/internal/sentry"
	"preventivi/internal/tracker"

	"github.com/google/uuid"
	"github.com/robfig/cron"
	"github.com/rs/zerolog"
)

// FolderSource источник новых предложений (папки Google Drive)
type FolderSource interface {
	Scan(ctx context.Context) ([]tracker.Source, error)
	Share(ctx context.Context, folderID string) error
}

// CycleResult итог одного цикла проверки
type CycleResult struct {
	ID         string
	Scanned    int
	Registered int
	Reminded   int
	Expired    int
	Skipped    int
}

// Scheduler периодически сканирует папки и продвигает состояние трекера
type Scheduler struct {
	tracker  *tracker.Tracker
	source   FolderSource
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	cron    *cron.Cron
	running atomic.Bool

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler создаёт планировщик; при source == nil выполняется только Tick
func NewScheduler(tr *tracker.Tracker, source FolderSource, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		tracker:  tr,
		source:   source,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Start запускает первый цикл сразу, затем каждые interval
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()
	if err := s.cron.AddFunc("@every "+s.interval.String(), func() { s.trigger(ctx) }); err != nil {
		return fmt.Errorf("ошибка настройки расписания: %w", err)
	}
	s.cron.Start()

	s.log.Info().Dur("interval", s.interval).Msg("запущен планировщик проверки предложений")
	s.trigger(ctx)
	return nil
}

// Stop останавливает расписание и дожидается текущего цикла.
// После Stop новые циклы не запускаются, даже если cron ещё успел вызвать задачу.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
	}
	s.wg.Wait()
}

// trigger пропускает запуск, если предыдущий цикл ещё не завершён
func (s *Scheduler) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// Add под тем же мьютексом, что и stopped: Wait в Stop не пересекается с Add
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn().Msg("предыдущий цикл ещё выполняется, пропускаем")
		return
	}
	defer s.running.Store(false)

	s.RunCycle(ctx)
}

// RunCycle один цикл: скан, доступ по ссылке, регистрация, Tick, сохранение
func (s *Scheduler) RunCycle(ctx context.Context) (res CycleResult) {
	res.ID = uuid.NewString()
	log := s.log.With().Str("cycle", res.ID).Logger()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			metrics.CycleFailures.WithLabelValues("panic").Inc()
			sentryutil.Recover(r, map[string]string{"cycle": res.ID})
			log.Error().Interface("panic", r).Msg("паника в цикле проверки")
		}
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	s.register(ctx, log, &res)

	for _, change := range s.tracker.Tick(ctx, s.now()) {
		switch change.Kind {
		case tracker.ChangeReminded:
			res.Reminded++
		case tracker.ChangeExpired:
			res.Expired++
		}
	}
	metrics.Reminders.Add(float64(res.Reminded))
	metrics.Expired.Add(float64(res.Expired))

	if err := s.tracker.Flush(ctx); err != nil {
		metrics.CycleFailures.WithLabelValues("flush").Inc()
		sentryutil.CaptureError(err, map[string]string{"stage": "flush"})
		log.Error().Err(err).Msg("состояние не сохранено, повтор в следующем цикле")
	}

	metrics.Pending.Set(float64(s.tracker.Snapshot().Pending))

	log.Info().
		Int("scanned", res.Scanned).
		Int("registered", res.Registered).
		Int("reminded", res.Reminded).
		Int("expired", res.Expired).
		Int("skipped", res.Skipped).
		Dur("took", time.Since(start)).
		Msg("цикл проверки завершён")
	return res
}

// register сканирует папки и регистрирует новые предложения.
// Ошибка сканирования не останавливает Tick: напоминания идут по уже известным.
func (s *Scheduler) register(ctx context.Context, log zerolog.Logger, res *CycleResult) {
	if s.source == nil {
		return
	}

	sources, err := s.source.Scan(ctx)
	if err != nil {
		stage := "scan"
		var scanErr *tracker.ScanError
		if errors.As(err, &scanErr) {
			stage = scanErr.Stage
		}
		metrics.CycleFailures.WithLabelValues("scan").Inc()
		sentryutil.CaptureError(err, map[string]string{"stage": stage})
		log.Error().Err(err).Msg("ошибка сканирования, повтор в следующем цикле")
		return
	}
	res.Scanned = len(sources)

	for _, src := range sources {
		if s.tracker.Tracked(src.Key) {
			continue
		}

		// без доступа по ссылке группа не откроет папку
		if err := s.source.Share(ctx, src.Key.SourceID); err != nil {
			res.Skipped++
			metrics.CycleFailures.WithLabelValues("share").Inc()
			log.Warn().Err(err).Str("item", src.Key.String()).Msg("не удалось открыть доступ к папке, повтор в следующем цикле")
			continue
		}

		if _, ok := s.tracker.Register(ctx, src, s.now()); ok {
			res.Registered++
			metrics.Registered.Inc()
			metrics.Pending.Inc()
		}
	}
}
