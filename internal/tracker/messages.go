package tracker

import (
	"fmt"
	"html"
	"strings"
)

// Тексты уведомлений для групп. Все сообщения отправляются в режиме HTML.
// Названия папок обрезаются до maxLabelRunes, списки до maxListedLabels,
// чтобы уведомление укладывалось в лимит Telegram в 4096 символов.
const (
	maxLabelRunes   = 200
	maxListedLabels = 15
)

func initialNotice(it Item) string {
	return fmt.Sprintf("📩 Nuovo preventivo:\n<b>%s</b>\n🔗 %s",
		label(it), html.EscapeString(it.Reference))
}

func reminderNotice(it Item) string {
	return fmt.Sprintf("⏰ Sollecito #%d per conferma:\n<b>%s</b>\n🔗 %s",
		it.RemindersSent, label(it), html.EscapeString(it.Reference))
}

func expiredNotice(it Item) string {
	return fmt.Sprintf("⚠️ Nessuna conferma ricevuta per <b>%s</b>. Passiamo ad altra impresa.",
		label(it))
}

func expiredOperatorNotice(it Item) string {
	return fmt.Sprintf("❌ Nessuna conferma da gruppo %d per: %s",
		it.Key.Recipient, label(it))
}

func ackNotice(items []Item) string {
	return "✅ Conferma ricevuta per: " + labels(items)
}

func confirmedOperatorNotice(recipient int64, items []Item) string {
	return fmt.Sprintf("✅ Confermato da gruppo %d: %s", recipient, labels(items))
}

func labels(items []Item) string {
	shown := items
	if len(shown) > maxListedLabels {
		shown = shown[:maxListedLabels]
	}

	names := make([]string, len(shown))
	for i, it := range shown {
		names[i] = label(it)
	}
	text := strings.Join(names, ", ")
	if rest := len(items) - len(shown); rest > 0 {
		text += fmt.Sprintf(" e altri %d", rest)
	}
	return text
}

// label экранированное название, обрезанное по символам
func label(it Item) string {
	r := []rune(it.Label)
	if len(r) > maxLabelRunes {
		return html.EscapeString(string(r[:maxLabelRunes-1])) + "…"
	}
	return html.EscapeString(it.Label)
}
