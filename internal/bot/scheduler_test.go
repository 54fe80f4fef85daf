package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"preventivi/internal/tracker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu        sync.Mutex
	sources   []tracker.Source
	scanErr   error
	shareErr  map[string]error
	shared    []string
	scanCalls int
	panicOn   bool
}

func (f *fakeSource) Scan(context.Context) ([]tracker.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanCalls++
	if f.panicOn {
		panic("drive client not initialised")
	}
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return append([]tracker.Source(nil), f.sources...), nil
}

func (f *fakeSource) Share(_ context.Context, folderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.shareErr[folderID]; err != nil {
		return err
	}
	f.shared = append(f.shared, folderID)
	return nil
}

func source(id, label string) tracker.Source {
	return tracker.Source{
		Key:       tracker.Key{Recipient: group, SourceID: id},
		Label:     label,
		Reference: "https://drive.google.com/drive/folders/" + id,
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(t *testing.T, src FolderSource) (*Scheduler, *tracker.Tracker, *fakeSender, *clock) {
	t.Helper()
	api := &fakeSender{}
	tr := tracker.New(tracker.Config{
		ReminderInterval: 4 * time.Hour,
		MaxReminders:     2,
		Operator:         owner,
	}, NewNotifier(api), nil)

	c := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	s := NewScheduler(tr, src, time.Minute, zerolog.Nop())
	s.now = c.now
	return s, tr, api, c
}

func TestScheduler_RegistersNewFolders(t *testing.T) {
	src := &fakeSource{sources: []tracker.Source{source("q1", "Cucina"), source("q2", "Bagno")}}
	s, tr, api, _ := newTestScheduler(t, src)

	res := s.RunCycle(context.Background())
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 2, res.Registered)
	assert.NotEmpty(t, res.ID)
	assert.ElementsMatch(t, []string{"q1", "q2"}, src.shared)
	assert.Len(t, api.texts(group), 2)

	// повторный цикл не регистрирует и не открывает доступ повторно
	res = s.RunCycle(context.Background())
	assert.Equal(t, 0, res.Registered)
	assert.Len(t, src.shared, 2)
	assert.Len(t, tr.Pending(group), 2)
}

func TestScheduler_ShareFailureRetried(t *testing.T) {
	src := &fakeSource{
		sources:  []tracker.Source{source("q1", "Cucina")},
		shareErr: map[string]error{"q1": errors.New("insufficientFilePermissions")},
	}
	s, tr, api, _ := newTestScheduler(t, src)

	res := s.RunCycle(context.Background())
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Registered)
	assert.False(t, tr.Tracked(tracker.Key{Recipient: group, SourceID: "q1"}))
	assert.Empty(t, api.texts(group))

	src.mu.Lock()
	src.shareErr = nil
	src.mu.Unlock()

	res = s.RunCycle(context.Background())
	assert.Equal(t, 1, res.Registered)
	assert.True(t, tr.Tracked(tracker.Key{Recipient: group, SourceID: "q1"}))
}

func TestScheduler_ScanErrorStillTicks(t *testing.T) {
	src := &fakeSource{sources: []tracker.Source{source("q1", "Cucina")}}
	s, _, api, c := newTestScheduler(t, src)

	s.RunCycle(context.Background())

	src.mu.Lock()
	src.scanErr = &tracker.ScanError{Stage: "root", Err: errors.New("503")}
	src.mu.Unlock()

	c.add(4*time.Hour + time.Minute)
	res := s.RunCycle(context.Background())
	assert.Equal(t, 0, res.Scanned)
	assert.Equal(t, 1, res.Reminded)
	assert.Len(t, api.texts(group), 2)
}

func TestScheduler_RemindersThenExpiry(t *testing.T) {
	src := &fakeSource{sources: []tracker.Source{source("q1", "Cucina")}}
	s, tr, api, c := newTestScheduler(t, src)

	s.RunCycle(context.Background())

	c.add(4*time.Hour + time.Minute)
	assert.Equal(t, 1, s.RunCycle(context.Background()).Reminded)

	c.add(4*time.Hour + time.Minute)
	assert.Equal(t, 1, s.RunCycle(context.Background()).Reminded)

	c.add(time.Minute)
	res := s.RunCycle(context.Background())
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 0, res.Reminded)

	st := tr.Snapshot()
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, 1, st.Expired)
	assert.Len(t, api.texts(owner), 1)

	// истёкшее предложение не регистрируется повторно
	assert.Equal(t, 0, s.RunCycle(context.Background()).Registered)
}

func TestScheduler_NilSource(t *testing.T) {
	s, _, _, _ := newTestScheduler(t, nil)

	res := s.RunCycle(context.Background())
	assert.Equal(t, 0, res.Scanned)
}

func TestScheduler_RecoversPanic(t *testing.T) {
	src := &fakeSource{panicOn: true}
	s, _, _, _ := newTestScheduler(t, src)

	assert.NotPanics(t, func() { s.RunCycle(context.Background()) })
}

func TestScheduler_StartRunsFirstCycle(t *testing.T) {
	src := &fakeSource{sources: []tracker.Source{source("q1", "Cucina")}}
	s, tr, _, _ := newTestScheduler(t, src)
	s.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	s.Stop()

	assert.True(t, tr.Tracked(tracker.Key{Recipient: group, SourceID: "q1"}))
	assert.Equal(t, 1, src.scanCalls)
}

func TestScheduler_TriggerSkipsWhenCanceled(t *testing.T) {
	src := &fakeSource{}
	s, _, _, _ := newTestScheduler(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.trigger(ctx)

	assert.Equal(t, 0, src.scanCalls)
}

func TestScheduler_NoCyclesAfterStop(t *testing.T) {
	src := &fakeSource{sources: []tracker.Source{source("q1", "Cucina")}}
	s, tr, _, _ := newTestScheduler(t, src)
	s.interval = time.Hour

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	require.Equal(t, 1, src.scanCalls)

	// запоздавший вызов от cron после Stop
	s.trigger(context.Background())
	assert.Equal(t, 1, src.scanCalls)
	assert.True(t, tr.Tracked(tracker.Key{Recipient: group, SourceID: "q1"}))
}

func TestScheduler_StopConcurrentWithTrigger(t *testing.T) {
	src := &fakeSource{}
	s, _, _, _ := newTestScheduler(t, src)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.trigger(context.Background())
		}()
	}
	s.Stop()
	wg.Wait()

	calls := src.scanCalls
	s.trigger(context.Background())
	assert.Equal(t, calls, src.scanCalls)
}
