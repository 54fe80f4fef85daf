// Package report формирует сводки по предложениям: текст для Telegram
// и Excel-файл для оператора.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"preventivi/internal/tracker"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary = "Riepilogo"
	SheetItems   = "Preventivi"

	timeLayout = "02.01.2006 15:04"
)

// Text краткая сводка для команды /report
func Text(st tracker.Stats, days int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Preventivi: %d\n", st.Total())
	fmt.Fprintf(&b, "🟡 In attesa: %d\n", st.Pending)
	fmt.Fprintf(&b, "✅ Confermati: %d\n", st.Confirmed)
	fmt.Fprintf(&b, "❌ Scaduti: %d\n", st.Expired)

	if days < 0 {
		days = 0
	}
	keys := sortedDays(st.Daily)
	if len(keys) > days {
		keys = keys[len(keys)-days:]
	}
	if len(keys) > 0 {
		b.WriteString("\nUltimi giorni (inviati / confermati / scaduti):\n")
		for _, day := range keys {
			s := st.Daily[day]
			fmt.Fprintf(&b, "%s: %d / %d / %d\n", day, s.Sent, s.Confirmed, s.Expired)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// PendingText список ожидающих предложений группы для команды /stato
func PendingText(items []tracker.Item, maxReminders int) string {
	if len(items) == 0 {
		return "Nessun preventivo in attesa di conferma."
	}

	var b strings.Builder
	b.WriteString("🟡 Preventivi in attesa di conferma:\n")
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s (solleciti %d/%d)\n", i+1, it.Label, it.RemindersSent, maxReminders)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Workbook строит Excel-отчёт: дневная статистика и список предложений
func Workbook(st tracker.Stats, items []tracker.Item) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"3366CC"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	summary := [][]interface{}{{"Giorno", "Inviati", "Confermati", "Scaduti"}}
	for _, day := range sortedDays(st.Daily) {
		s := st.Daily[day]
		summary = append(summary, []interface{}{day, s.Sent, s.Confirmed, s.Expired})
	}
	summary = append(summary,
		[]interface{}{},
		[]interface{}{"In attesa", st.Pending},
		[]interface{}{"Confermati", st.Confirmed},
		[]interface{}{"Scaduti", st.Expired},
	)
	if err := writeRows(f, SheetSummary, summary, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	rows := [][]interface{}{{"Gruppo", "Preventivo", "Link", "Stato", "Creato", "Ultimo invio", "Solleciti", "Chiuso"}}
	for _, it := range items {
		closed := ""
		if !it.ClosedAt.IsZero() {
			closed = it.ClosedAt.Format(timeLayout)
		}
		rows = append(rows, []interface{}{
			it.Key.Recipient,
			it.Label,
			it.Reference,
			stateLabel(it.State),
			it.CreatedAt.Format(timeLayout),
			it.LastActionAt.Format(timeLayout),
			it.RemindersSent,
			closed,
		})
	}
	if err := writeRows(f, SheetItems, rows, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// Write пишет Excel-отчёт в w
func Write(w io.Writer, st tracker.Stats, items []tracker.Item) error {
	f, err := Workbook(st, items)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteTo(w)
	return err
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

func stateLabel(s tracker.State) string {
	switch s {
	case tracker.StateConfirmed:
		return "Confermato"
	case tracker.StateExpired:
		return "Scaduto"
	default:
		return "In attesa"
	}
}

func sortedDays(daily map[string]tracker.DayStats) []string {
	keys := make([]string, 0, len(daily))
	for day := range daily {
		keys = append(keys, day)
	}
	sort.Strings(keys)
	return keys
}
