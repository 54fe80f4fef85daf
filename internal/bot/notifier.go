package bot

import (
	"context"

	"preventivi/internal/metrics"
	"preventivi/internal/tracker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier доставляет уведомления трекера в Telegram
type Notifier struct {
	api Sender
}

var _ tracker.Notifier = (*Notifier)(nil)

// NewNotifier создаёт Notifier
func NewNotifier(api Sender) *Notifier {
	return &Notifier{api: api}
}

// Send отправляет HTML-сообщение в чат
func (n *Notifier) Send(ctx context.Context, recipient int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(recipient, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.api.Send(msg); err != nil {
		metrics.DeliveryFailures.Inc()
		return err
	}
	return nil
}
