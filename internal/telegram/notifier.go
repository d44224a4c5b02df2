package telegram

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/myungjungcrypto/usdc-telegram-bot/internal/domain"
	"github.com/myungjungcrypto/usdc-telegram-bot/internal/monitor"
)

// Notifier delivers threshold alerts to Telegram chats.
// Implements monitor.Notifier.
type Notifier struct {
	bot *tgbotapi.BotAPI
	log *zap.Logger
}

// NewNotifier creates a Notifier on top of a bot API client.
func NewNotifier(bot *tgbotapi.BotAPI, log *zap.Logger) *Notifier {
	return &Notifier{bot: bot, log: log}
}

// SendAlert formats and sends one alert message. Best effort: the returned
// error is logged by the scheduler, never retried.
func (n *Notifier) SendAlert(chatID int64, a monitor.Alert) error {
	msg := tgbotapi.NewMessage(chatID, formatAlert(a))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := n.bot.Send(msg)
	return err
}

func formatAlert(a monitor.Alert) string {
	cond := "at or above"
	if a.Direction == domain.DirectionBelow {
		cond = "below"
	}
	return fmt.Sprintf(
		"🚨 <b>USDC alert!</b>\n\n"+
			"💰 Balance: <b>%s USDC</b> (%s threshold %s)\n"+
			"📍 Address: <code>%s</code>\n"+
			"⏰ Time: %s\n\n"+
			"🔗 <a href=\"https://arbiscan.io/address/%s\">View on Arbiscan</a>\n\n"+
			"📌 Next alert in %d min at the earliest.",
		a.Balance.StringFixed(2), cond, a.Threshold.String(),
		a.Address,
		time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
		a.Address,
		a.AlertIntervalMin,
	)
}
