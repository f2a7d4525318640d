package telegram

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/notifier"
)

const channelName = "telegram"

// sender is the part of tgbotapi.BotAPI used to deliver messages.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier sends direct messages to members that linked a Telegram account.
type Notifier struct {
	bot     sender
	dryRun  bool
	metrics metrics.Metrics
}

// NewNotifier connects to the Bot API with token.
func NewNotifier(token string, dryRun bool, m metrics.Metrics) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	log.Info("Telegram bot authorized", "username", bot.Self.UserName)
	return NewNotifierWithSender(bot, dryRun, m), nil
}

// NewNotifierWithSender creates a Notifier on top of an existing sender.
func NewNotifierWithSender(bot sender, dryRun bool, m metrics.Metrics) *Notifier {
	return &Notifier{bot: bot, dryRun: dryRun, metrics: m}
}

// Notify messages the recipient. Notifications without a reachable recipient are skipped.
func (t *Notifier) Notify(ctx context.Context, n notifier.Notification) error {
	if n.Recipient == nil || n.Recipient.TelegramID == nil {
		return nil
	}
	chatID := *n.Recipient.TelegramID
	text := notifier.Text(n)

	if t.dryRun {
		log.Info("[Dry Run] Would send Telegram message", "chatID", chatID, "text", text)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		t.metrics.IncNotifFailed(channelName)
		log.Error("Failed to send Telegram message", "error", err, "chatID", chatID, "userID", n.Recipient.ID)
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	t.metrics.IncNotifSent(channelName)
	log.Debug("Sent Telegram message", "chatID", chatID, "kind", n.Kind)
	return nil
}
