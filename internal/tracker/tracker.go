// Package tracker ведёт жизненный цикл предложений (preventivi):
// первичное уведомление, повторные напоминания, подтверждение группой
// или истечение срока после исчерпания напоминаний.
package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier доставляет текстовое сообщение в чат
type Notifier interface {
	Send(ctx context.Context, recipient int64, text string) error
}

// Document сохраняемое состояние трекера
type Document struct {
	Items []Item              `json:"items"`
	Daily map[string]DayStats `json:"daily"`
}

// Store сохраняет и загружает состояние целиком
type Store interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// Entry запись журнала об изменении состояния предложения
type Entry struct {
	ID   string
	At   time.Time
	Item Item
}

// Journal журнал изменений (например, Google Таблица)
type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// Config параметры эскалации
type Config struct {
	ReminderInterval time.Duration
	MaxReminders     int
	// Operator чат оператора для сводок; 0 отключает сводки
	Operator int64
}

// Option настраивает Tracker
type Option func(*Tracker)

// WithJournal подключает журнал изменений
func WithJournal(j Journal) Option {
	return func(t *Tracker) { t.journal = j }
}

// WithLogger задаёт логгер
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// Tracker владеет всеми предложениями. Tick и Confirm сериализуются
// через mu; уведомления отправляются уже после снятия блокировки.
type Tracker struct {
	cfg      Config
	notifier Notifier
	store    Store
	journal  Journal
	log      zerolog.Logger

	mu    sync.Mutex
	items map[Key]*Item
	daily map[string]DayStats
	dirty bool

	saveMu sync.Mutex
}

type notice struct {
	recipient int64
	text      string
}

// New создаёт трекер. store может быть nil, тогда состояние живёт только в памяти.
func New(cfg Config, notifier Notifier, store Store, opts ...Option) *Tracker {
	t := &Tracker{
		cfg:      cfg,
		notifier: notifier,
		store:    store,
		log:      zerolog.Nop(),
		items:    make(map[Key]*Item),
		daily:    make(map[string]DayStats),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore загружает состояние из хранилища. При ошибке трекер остаётся пустым,
// а ошибка возвращается для логирования.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}

	doc, err := t.store.Load(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, it := range doc.Items {
		if !it.State.Valid() {
			t.log.Warn().Str("key", it.Key.String()).Str("state", string(it.State)).
				Msg("пропущено предложение с неизвестным состоянием")
			continue
		}
		if _, ok := t.items[it.Key]; ok {
			continue
		}
		item := it
		t.items[it.Key] = &item
	}
	for day, s := range doc.Daily {
		t.daily[day] = s
	}

	t.log.Info().Int("items", len(t.items)).Msg("состояние восстановлено")
	return nil
}

// Tracked проверяет, известно ли предложение (в любом состоянии)
func (t *Tracker) Tracked(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.items[key]
	return ok
}

// Register начинает отслеживание нового предложения и отправляет первичное
// уведомление. Повторная регистрация того же ключа ничего не делает.
func (t *Tracker) Register(ctx context.Context, src Source, now time.Time) (Item, bool) {
	t.mu.Lock()
	if _, ok := t.items[src.Key]; ok {
		t.mu.Unlock()
		return Item{}, false
	}

	it := &Item{
		Key:          src.Key,
		Label:        src.Label,
		Reference:    src.Reference,
		CreatedAt:    now,
		LastActionAt: now,
		State:        StatePending,
	}
	t.items[src.Key] = it
	t.bump(now, func(s *DayStats) { s.Sent++ })
	t.dirty = true
	item := *it
	t.mu.Unlock()

	t.log.Info().Str("key", item.Key.String()).Str("label", item.Label).Msg("новое предложение")

	t.deliver(ctx, notice{recipient: item.Key.Recipient, text: initialNotice(item)})
	t.record(ctx, now, item)
	t.persist(ctx)

	return item, true
}

// Tick выполняет плановую проверку: истёкшие предложения закрываются,
// просроченным отправляется напоминание.
func (t *Tracker) Tick(ctx context.Context, now time.Time) []StateChange {
	var (
		changes []StateChange
		notices []notice
	)

	t.mu.Lock()
	for _, it := range t.items {
		if it.State.Terminal() {
			continue
		}

		// Истечение проверяется раньше напоминания: после пропущенного тика
		// предложение с исчерпанным лимитом не должно получить лишнее напоминание.
		if it.RemindersSent >= t.cfg.MaxReminders {
			it.State = StateExpired
			it.ClosedAt = now
			t.bump(now, func(s *DayStats) { s.Expired++ })
			changes = append(changes, StateChange{Kind: ChangeExpired, Item: *it})

			notices = append(notices, notice{recipient: it.Key.Recipient, text: expiredNotice(*it)})
			if t.cfg.Operator != 0 {
				notices = append(notices, notice{recipient: t.cfg.Operator, text: expiredOperatorNotice(*it)})
			}
			continue
		}

		if now.Sub(it.LastActionAt) >= t.cfg.ReminderInterval {
			it.RemindersSent++
			it.LastActionAt = now
			changes = append(changes, StateChange{Kind: ChangeReminded, Item: *it})
			notices = append(notices, notice{recipient: it.Key.Recipient, text: reminderNotice(*it)})
		}
	}
	if len(changes) > 0 {
		t.dirty = true
	}
	t.mu.Unlock()

	if len(changes) == 0 {
		return nil
	}

	for _, ch := range changes {
		t.log.Info().Str("key", ch.Item.Key.String()).Str("change", string(ch.Kind)).
			Int("reminders", ch.Item.RemindersSent).Msg("изменение предложения")
	}

	t.deliver(ctx, notices...)
	for _, ch := range changes {
		if ch.Kind == ChangeExpired {
			t.record(ctx, now, ch.Item)
		}
	}
	t.persist(ctx)

	return changes
}

// Confirm подтверждает все ожидающие предложения группы. Одно сообщение
// подтверждает сразу все: во входящем тексте нет идентификатора предложения.
func (t *Tracker) Confirm(ctx context.Context, recipient int64, now time.Time) []Item {
	var confirmed []Item

	t.mu.Lock()
	for _, it := range t.items {
		if it.Key.Recipient != recipient || it.State.Terminal() {
			continue
		}
		it.State = StateConfirmed
		it.ClosedAt = now
		t.bump(now, func(s *DayStats) { s.Confirmed++ })
		confirmed = append(confirmed, *it)
	}
	if len(confirmed) > 0 {
		t.dirty = true
	}
	t.mu.Unlock()

	if len(confirmed) == 0 {
		t.log.Debug().Int64("recipient", recipient).Msg("подтверждение без ожидающих предложений")
		return nil
	}

	sortItems(confirmed)
	t.log.Info().Int64("recipient", recipient).Int("items", len(confirmed)).Msg("предложения подтверждены")

	notices := []notice{{recipient: recipient, text: ackNotice(confirmed)}}
	if t.cfg.Operator != 0 {
		notices = append(notices, notice{recipient: t.cfg.Operator, text: confirmedOperatorNotice(recipient, confirmed)})
	}
	t.deliver(ctx, notices...)

	for _, it := range confirmed {
		t.record(ctx, now, it)
	}
	t.persist(ctx)

	return confirmed
}

// Snapshot возвращает статистику, не изменяя состояние
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := Stats{Daily: make(map[string]DayStats, len(t.daily))}
	for _, it := range t.items {
		switch it.State {
		case StatePending:
			st.Pending++
		case StateConfirmed:
			st.Confirmed++
		case StateExpired:
			st.Expired++
		}
	}
	for day, s := range t.daily {
		st.Daily[day] = s
	}
	return st
}

// Items возвращает копии всех предложений, упорядоченные по дате создания
func (t *Tracker) Items() []Item {
	t.mu.Lock()
	out := make([]Item, 0, len(t.items))
	for _, it := range t.items {
		out = append(out, *it)
	}
	t.mu.Unlock()

	sortItems(out)
	return out
}

// Pending возвращает ожидающие предложения группы
func (t *Tracker) Pending(recipient int64) []Item {
	t.mu.Lock()
	var out []Item
	for _, it := range t.items {
		if it.Key.Recipient == recipient && it.State == StatePending {
			out = append(out, *it)
		}
	}
	t.mu.Unlock()

	sortItems(out)
	return out
}

// Flush сохраняет состояние, если оно менялось. При ошибке состояние остаётся
// «грязным» и будет сохранено при следующем вызове.
func (t *Tracker) Flush(ctx context.Context) error {
	if t.store == nil {
		return nil
	}

	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.Lock()
	if !t.dirty {
		t.mu.Unlock()
		return nil
	}
	doc := t.document()
	t.dirty = false
	t.mu.Unlock()

	if err := t.store.Save(ctx, doc); err != nil {
		t.mu.Lock()
		t.dirty = true
		t.mu.Unlock()
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// document собирает копию состояния; вызывается под mu
func (t *Tracker) document() Document {
	doc := Document{
		Items: make([]Item, 0, len(t.items)),
		Daily: make(map[string]DayStats, len(t.daily)),
	}
	for _, it := range t.items {
		doc.Items = append(doc.Items, *it)
	}
	sortItems(doc.Items)
	for day, s := range t.daily {
		doc.Daily[day] = s
	}
	return doc
}

// bump изменяет дневной счётчик; вызывается под mu
func (t *Tracker) bump(now time.Time, fn func(*DayStats)) {
	day := DayKey(now)
	s := t.daily[day]
	fn(&s)
	t.daily[day] = s
}

// deliver отправляет уведомления по очереди. Неудачная отправка только
// логируется: изменение состояния уже зафиксировано и не откатывается.
func (t *Tracker) deliver(ctx context.Context, notices ...notice) {
	for _, n := range notices {
		if err := t.notifier.Send(ctx, n.recipient, n.text); err != nil {
			derr := &DeliveryError{Recipient: n.recipient, Err: err}
			t.log.Error().Err(derr).Msg("уведомление не доставлено")
		}
	}
}

func (t *Tracker) record(ctx context.Context, now time.Time, it Item) {
	if t.journal == nil {
		return
	}
	e := Entry{ID: uuid.NewString(), At: now, Item: it}
	if err := t.journal.Record(ctx, e); err != nil {
		t.log.Warn().Err(err).Str("key", it.Key.String()).Msg("не удалось записать в журнал")
	}
}

func (t *Tracker) persist(ctx context.Context) {
	if err := t.Flush(ctx); err != nil {
		t.log.Error().Err(err).Msg("состояние не сохранено, повтор при следующей проверке")
	}
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		if items[i].Key.Recipient != items[j].Key.Recipient {
			return items[i].Key.Recipient < items[j].Key.Recipient
		}
		return items[i].Key.SourceID < items[j].Key.SourceID
	})
}
