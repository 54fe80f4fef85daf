package gsheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"preventivi/internal/tracker"

	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
)

const (
	folderMimeType    = "application/vnd.google-apps.folder"
	groupFolderPrefix = "gruppo_"
)

// Scanner перечисляет папки предложений в дереве Drive:
//
//	<root>/gruppo_<chatID>/<предложение>
type Scanner struct {
	client   *Client
	rootID   string
	rootName string
	log      zerolog.Logger
}

// NewScanner создаёт сканер. rootID имеет приоритет над rootName.
func NewScanner(client *Client, rootID, rootName string, log zerolog.Logger) *Scanner {
	return &Scanner{
		client:   client,
		rootID:   rootID,
		rootName: rootName,
		log:      log,
	}
}

// Scan возвращает все найденные предложения. Ссылка в Reference ещё не
// открыта публично, для этого нужен Share.
func (s *Scanner) Scan(ctx context.Context) ([]tracker.Source, error) {
	rootID, err := s.resolveRoot(ctx)
	if err != nil {
		return nil, &tracker.ScanError{Stage: "root", Err: err}
	}

	groups, err := s.client.listFolders(ctx, parentQuery(rootID))
	if err != nil {
		return nil, &tracker.ScanError{Stage: "groups", Err: err}
	}

	var sources []tracker.Source
	for _, g := range groups {
		chatID, ok := ParseGroupFolder(g.Name)
		if !ok {
			s.log.Debug().Str("folder", g.Name).Msg("папка не похожа на группу, пропускаем")
			continue
		}

		quotes, err := s.client.listFolders(ctx, parentQuery(g.Id))
		if err != nil {
			return nil, &tracker.ScanError{Stage: "quotes " + g.Name, Err: err}
		}

		for _, q := range quotes {
			sources = append(sources, tracker.Source{
				Key:       tracker.Key{Recipient: chatID, SourceID: q.Id},
				Label:     q.Name,
				Reference: FolderURL(q.Id),
			})
		}
	}

	return sources, nil
}

// Share открывает папку на чтение всем, у кого есть ссылка
func (s *Scanner) Share(ctx context.Context, folderID string) error {
	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	_, err := s.client.drive.Permissions.Create(folderID, perm).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("не удалось открыть доступ к %s: %w", folderID, err)
	}
	return nil
}

func (s *Scanner) resolveRoot(ctx context.Context) (string, error) {
	if s.rootID != "" {
		return s.rootID, nil
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(s.rootName), folderMimeType)
	folders, err := s.client.listFolders(ctx, q)
	if err != nil {
		return "", err
	}
	if len(folders) == 0 {
		return "", fmt.Errorf("папка %q не найдена", s.rootName)
	}
	if len(folders) > 1 {
		s.log.Warn().Str("name", s.rootName).Int("found", len(folders)).Msg("найдено несколько корневых папок, используем первую")
	}
	return folders[0].Id, nil
}

// ParseGroupFolder извлекает chat id из имени папки "gruppo_<chatID>"
func ParseGroupFolder(name string) (int64, bool) {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, groupFolderPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(name, groupFolderPrefix), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (c *Client) listFolders(ctx context.Context, q string) ([]*drive.File, error) {
	var files []*drive.File
	err := c.drive.Files.List().
		Q(q).
		Fields("nextPageToken, files(id, name)").
		PageSize(1000).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			files = append(files, page.Files...)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func parentQuery(parentID string) string {
	return fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false",
		escapeQuery(parentID), folderMimeType)
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
