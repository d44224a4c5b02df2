package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/myungjungcrypto/usdc-telegram-bot/internal/monitor"
	"github.com/myungjungcrypto/usdc-telegram-bot/internal/store"
)

// Router wires Telegram updates to command handlers.
type Router struct {
	bot   *tgbotapi.BotAPI
	log   *zap.Logger
	repo  store.Repo
	sched *monitor.Scheduler
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, sched *monitor.Scheduler) *Router {
	return &Router{bot: bot, log: log, repo: repo, sched: sched}
}

// HandleUpdate routes a single update to the appropriate handler. The given
// ctx is the application context; tasks started here outlive the update.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || !upd.Message.IsCommand() {
		return
	}

	msg := upd.Message
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		r.sendHTML(chatID, startText)
	case "help":
		r.sendHTML(chatID, helpText)
	case "monitor":
		r.handleMonitor(ctx, chatID, args)
	case "stop":
		r.handleStop(ctx, chatID)
	case "status":
		r.handleStatus(ctx, chatID)
	case "settings":
		r.handleSettings(ctx, chatID)
	case "address":
		r.handleAddress(ctx, chatID, args)
	case "threshold":
		r.handleThreshold(ctx, chatID, args)
	case "direction":
		r.handleDirection(ctx, chatID, args)
	case "checkinterval":
		r.handleCheckInterval(ctx, chatID, args)
	case "alertinterval":
		r.handleAlertInterval(ctx, chatID, args)
	case "alerton":
		r.handleAlertToggle(ctx, chatID, true)
	case "alertoff":
		r.handleAlertToggle(ctx, chatID, false)
	default:
		r.sendText(chatID, "Unknown command. See /help.")
	}
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}
