package bot

import (
	"preventivi/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLen лимит длины текста сообщения Telegram (в символах)
const maxMessageLen = 4096

// sendError отправляет пользователю сообщение об ошибке и логирует её
func (b *Bot) sendError(chatID int64, userMessage string, err error) {
	if err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("ошибка обработки команды")
	}
	b.sendMessage(chatID, userMessage)
}

// sendMessage отправляет текст, слишком длинный обрезается
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, truncateString(text, maxMessageLen))
	if _, err := b.api.Send(msg); err != nil {
		metrics.DeliveryFailures.Inc()
		b.log.Error().Err(err).Int64("chat", chatID).Msg("ошибка отправки сообщения")
	}
}

// truncateString обрезает строку до maxLen символов с многоточием
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
