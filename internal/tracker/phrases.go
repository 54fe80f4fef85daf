package tracker

import (
	"sort"
	"strings"
	"sync"
)

// DefaultPhrases фразы подтверждения по умолчанию
var DefaultPhrases = []string{"ok", "confermo", "va bene", "accetto", "ricevuto"}

// Matcher проверяет, является ли сообщение подтверждением.
// Сравнение точное, после нормализации; вхождение подстроки не считается.
type Matcher struct {
	mu      sync.RWMutex
	phrases map[string]struct{}
}

// NewMatcher создаёт Matcher с заданным набором фраз
func NewMatcher(phrases []string) *Matcher {
	m := &Matcher{}
	m.Set(phrases)
	return m
}

// Set заменяет набор фраз. Пустые фразы игнорируются.
func (m *Matcher) Set(phrases []string) {
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		if n := Normalize(p); n != "" {
			set[n] = struct{}{}
		}
	}

	m.mu.Lock()
	m.phrases = set
	m.mu.Unlock()
}

// Phrases возвращает текущий набор нормализованных фраз по алфавиту
func (m *Matcher) Phrases() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.phrases))
	for p := range m.phrases {
		out = append(out, p)
	}
	m.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Match возвращает true, если текст совпадает с одной из фраз
func (m *Matcher) Match(text string) bool {
	n := Normalize(text)
	if n == "" {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.phrases[n]
	return ok
}

// Normalize приводит текст к нижнему регистру, схлопывает пробелы
// и убирает завершающие "." и "!"
func Normalize(text string) string {
	n := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	n = strings.TrimRight(n, ".!")
	return strings.TrimSpace(n)
}
