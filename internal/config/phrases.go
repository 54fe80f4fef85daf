package config

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReadPhrasesFile читает фразы подтверждения: одна фраза на строку, строки с # пропускаются
func ReadPhrasesFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var phrases []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, line)
	}

	return phrases, scanner.Err()
}

// WatchPhrases следит за файлом фраз и вызывает onChange после каждого изменения.
// Пустой или нечитаемый файл не применяется. Блокируется до отмены ctx.
func WatchPhrases(ctx context.Context, path string, onChange func([]string), log zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("создание наблюдателя: %w", err)
	}
	defer watcher.Close()

	// Следим за каталогом: редакторы часто заменяют файл через rename
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("наблюдение за %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("наблюдение за файлом фраз запущено")

	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			phrases, err := ReadPhrasesFile(path)
			if err != nil {
				log.Warn().Err(err).Msg("не удалось перечитать файл фраз")
				continue
			}
			if len(phrases) == 0 {
				log.Warn().Msg("файл фраз пуст, оставляем прежний набор")
				continue
			}
			onChange(phrases)
			log.Info().Int("phrases", len(phrases)).Msg("фразы подтверждения обновлены")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("ошибка наблюдателя")
		}
	}
}
