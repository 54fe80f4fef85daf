package gsheets

import (
	"context"
	"fmt"
	"strconv"

	"preventivi/internal/tracker"

	"google.golang.org/api/sheets/v4"
)

// Статусы в журнале
const (
	StatusPending   = "🟡 In attesa"
	StatusConfirmed = "✅ Confermato"
	StatusExpired   = "❌ Nessuna risposta"
)

const journalTimeLayout = "2006-01-02 15:04:05"

// Journal дописывает изменения состояния предложений в Google Таблицу
type Journal struct {
	client        *Client
	spreadsheetID string
	sheetName     string
}

var _ tracker.Journal = (*Journal)(nil)

// NewJournal создаёт журнал. Пустой sheetName означает первый лист
func NewJournal(client *Client, spreadsheetID, sheetName string) *Journal {
	return &Journal{
		client:        client,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}
}

// Record добавляет строку: группа, название, ссылка, статус, время, напоминания, id записи
func (j *Journal) Record(ctx context.Context, e tracker.Entry) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{JournalRow(e)},
	}

	_, err := j.client.sheets.Spreadsheets.Values.Append(j.spreadsheetID, j.appendRange(), valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}
	return nil
}

// JournalRow строка журнала для записи
func JournalRow(e tracker.Entry) []interface{} {
	return []interface{}{
		strconv.FormatInt(e.Item.Key.Recipient, 10),
		e.Item.Label,
		e.Item.Reference,
		StatusText(e.Item.State),
		e.At.Format(journalTimeLayout),
		e.Item.RemindersSent,
		e.ID,
	}
}

// StatusText статус для журнала
func StatusText(s tracker.State) string {
	switch s {
	case tracker.StateConfirmed:
		return StatusConfirmed
	case tracker.StateExpired:
		return StatusExpired
	default:
		return StatusPending
	}
}

func (j *Journal) appendRange() string {
	if j.sheetName == "" {
		return "A:G"
	}
	return fmt.Sprintf("'%s'!A:G", j.sheetName)
}
