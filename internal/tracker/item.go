package tracker

import (
	"fmt"
	"time"
)

// State состояние отслеживаемого предложения
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateExpired   State = "expired"
)

// Terminal возвращает true для конечных состояний
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateExpired
}

// Valid проверяет, что состояние известно
func (s State) Valid() bool {
	switch s {
	case StatePending, StateConfirmed, StateExpired:
		return true
	}
	return false
}

// Key составной идентификатор: группа-получатель + папка в Drive
type Key struct {
	Recipient int64  `json:"recipient"`
	SourceID  string `json:"source_id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.Recipient, k.SourceID)
}

// Source элемент, найденный сканером
type Source struct {
	Key       Key
	Label     string
	Reference string
}

// Item предложение (preventivo), ожидающее подтверждения
type Item struct {
	Key           Key       `json:"key"`
	Label         string    `json:"label"`
	Reference     string    `json:"reference"`
	CreatedAt     time.Time `json:"created_at"`
	RemindersSent int       `json:"reminders_sent"`
	LastActionAt  time.Time `json:"last_action_at"`
	State         State     `json:"state"`
	ClosedAt      time.Time `json:"closed_at,omitempty"`
}

// ChangeKind тип изменения за один тик
type ChangeKind string

const (
	ChangeReminded ChangeKind = "reminded"
	ChangeExpired  ChangeKind = "expired"
)

// StateChange изменение предложения, произошедшее в Tick
type StateChange struct {
	Kind ChangeKind
	Item Item
}

// DayStats дневные счётчики
type DayStats struct {
	Sent      int `json:"sent"`
	Confirmed int `json:"confirmed"`
	Expired   int `json:"expired"`
}

// Stats снимок состояния для отчётов
type Stats struct {
	Pending   int
	Confirmed int
	Expired   int
	Daily     map[string]DayStats
}

// Total общее число предложений
func (s Stats) Total() int {
	return s.Pending + s.Confirmed + s.Expired
}

const dayLayout = "2006-01-02"

// DayKey ключ дневной статистики
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}
