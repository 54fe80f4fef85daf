package bot

import (
	"bytes"
	"context"
	"strings"
	"time"

	"preventivi/internal/metrics"
	"preventivi/internal/report"
	"preventivi/internal/tracker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender отправляет запросы в Telegram; *tgbotapi.BotAPI удовлетворяет интерфейсу
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config параметры бота
type Config struct {
	OwnerID      int64
	MaxReminders int
	ReportDays   int
}

// Bot представляет Telegram бота: принимает подтверждения и команды
type Bot struct {
	api     Sender
	tracker *tracker.Tracker
	matcher *tracker.Matcher
	config  Config
	log     zerolog.Logger
	now     func() time.Time
}

// New создаёт новый экземпляр бота
func New(api Sender, tr *tracker.Tracker, matcher *tracker.Matcher, cfg Config, log zerolog.Logger) *Bot {
	if cfg.ReportDays <= 0 {
		cfg.ReportDays = 7
	}
	return &Bot{
		api:     api,
		tracker: tr,
		matcher: matcher,
		config:  cfg,
		log:     log,
		now:     time.Now,
	}
}

// UpdatesChannel открывает long polling
func UpdatesChannel(api *tgbotapi.BotAPI) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	return api.GetUpdatesChan(u)
}

// Start обрабатывает обновления до отмены ctx или закрытия канала
func (b *Bot) Start(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.log.Info().Msg("бот запущен, ожидаем сообщения")
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("паника при обработке сообщения")
		}
	}()

	if update.Message == nil || update.Message.Chat == nil {
		return
	}

	if update.Message.IsCommand() {
		b.handleCommand(ctx, update.Message)
		return
	}

	b.handleMessage(ctx, update.Message)
}

// handleMessage проверяет, является ли текст подтверждением
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if !b.matcher.Match(message.Text) {
		return
	}

	chatID := message.Chat.ID
	confirmed := b.tracker.Confirm(ctx, chatID, b.now())
	if len(confirmed) == 0 {
		return
	}

	metrics.Confirmed.Add(float64(len(confirmed)))
	metrics.Pending.Sub(float64(len(confirmed)))
	b.log.Info().Int64("chat", chatID).Int("items", len(confirmed)).Msg("получено подтверждение")
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start", "help":
		b.sendMessage(chatID, b.helpText())
	case "stato":
		items := b.tracker.Pending(chatID)
		b.sendMessage(chatID, report.PendingText(items, b.config.MaxReminders))
	case "report":
		if !b.isOwner(message) {
			return
		}
		b.sendMessage(chatID, report.Text(b.tracker.Snapshot(), b.config.ReportDays))
	case "export":
		if !b.isOwner(message) {
			return
		}
		b.sendExport(chatID)
	}
}

func (b *Bot) sendExport(chatID int64) {
	var buf bytes.Buffer
	if err := report.Write(&buf, b.tracker.Snapshot(), b.tracker.Items()); err != nil {
		b.sendError(chatID, "Errore nella generazione del report.", err)
		return
	}

	name := "preventivi_" + b.now().Format("2006-01-02") + ".xlsx"
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	if _, err := b.api.Send(doc); err != nil {
		metrics.DeliveryFailures.Inc()
		b.log.Error().Err(err).Int64("chat", chatID).Msg("ошибка отправки отчёта")
	}
}

// isOwner команды отчётов доступны только оператору
func (b *Bot) isOwner(message *tgbotapi.Message) bool {
	if b.config.OwnerID == 0 {
		return false
	}
	if message.Chat.ID == b.config.OwnerID {
		return true
	}
	return message.From != nil && message.From.ID == b.config.OwnerID
}

// helpText подсказка с актуальным набором фраз подтверждения
func (b *Bot) helpText() string {
	phrases := b.matcher.Phrases()
	quoted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		quoted = append(quoted, `"`+p+`"`)
	}

	return "🤖 Bot preventivi.\n" +
		"Quando arriva un nuovo preventivo riceverete il link alla cartella.\n" +
		"Rispondete " + strings.Join(quoted, ", ") + " per confermare.\n" +
		"/stato: preventivi in attesa di conferma"
}
