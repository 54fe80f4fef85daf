package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"preventivi/internal/tracker"
)

// FileStore хранит состояние одним JSON-документом
type FileStore struct {
	path         string
	moveAsideBad bool
	mu           sync.Mutex
}

// FileOption настройка файлового хранилища
type FileOption func(*FileStore)

// WithCorruptBackup переносит повреждённый файл в <path>.corrupt при загрузке.
// Включается только у процесса, который владеет файлом (бот), не у команд отчётов.
func WithCorruptBackup() FileOption {
	return func(s *FileStore) { s.moveAsideBad = true }
}

// NewFileStore создаёт файловое хранилище
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path путь к файлу состояния
func (s *FileStore) Path() string {
	return s.path
}

// Load читает состояние. Отсутствующий файл даёт пустое состояние.
// Для повреждённого файла возвращается tracker.ErrCorrupt; с WithCorruptBackup
// файл переименовывается в <path>.corrupt, иначе остаётся на месте.
func (s *FileStore) Load(ctx context.Context) (tracker.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyDocument(), nil
		}
		return tracker.Document{}, fmt.Errorf("чтение %s: %w", s.path, err)
	}

	if len(data) == 0 {
		return emptyDocument(), nil
	}

	var doc tracker.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		if !s.moveAsideBad {
			return tracker.Document{}, fmt.Errorf("%w: %v", tracker.ErrCorrupt, err)
		}
		if rerr := os.Rename(s.path, s.path+".corrupt"); rerr != nil {
			return tracker.Document{}, fmt.Errorf("%w: %v (не удалось отложить файл: %v)", tracker.ErrCorrupt, err, rerr)
		}
		return tracker.Document{}, fmt.Errorf("%w: %v", tracker.ErrCorrupt, err)
	}
	if doc.Daily == nil {
		doc.Daily = make(map[string]tracker.DayStats)
	}

	return doc, nil
}

// Save атомарно записывает состояние: временный файл + rename
func (s *FileStore) Save(ctx context.Context, doc tracker.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func emptyDocument() tracker.Document {
	return tracker.Document{Daily: make(map[string]tracker.DayStats)}
}
