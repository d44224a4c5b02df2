package telegram

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/myungjungcrypto/usdc-telegram-bot/internal/domain"
)

// handleMonitor creates (or replaces) a monitor with defaults and starts it.
func (r *Router) handleMonitor(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		r.sendHTML(chatID, "❌ Usage: /monitor [address] [threshold]\n\nExample:\n<code>/monitor 0xc477... 1000</code>")
		return
	}

	addr, err := domain.ParseAddress(args[0])
	if err != nil {
		r.sendText(chatID, "❌ Invalid address. Expected 0x followed by 40 hex characters.")
		return
	}
	threshold, err := domain.ParseThreshold(args[1])
	if err != nil {
		r.sendText(chatID, "❌ The threshold must be a number greater than 0.")
		return
	}

	cfg := &domain.MonitorConfig{
		ChatID:           chatID,
		Address:          addr,
		Threshold:        threshold,
		Direction:        domain.DefaultDirection,
		CheckIntervalSec: domain.DefaultCheckIntervalSec,
		AlertIntervalMin: domain.DefaultAlertIntervalMin,
		AlertEnabled:     true,
		IsActive:         true,
	}
	if err := r.repo.Upsert(ctx, cfg); err != nil {
		r.log.Error("save config failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, "❌ Could not save your settings. Please try again later.")
		return
	}

	r.sched.Start(ctx, chatID)

	r.sendHTML(chatID, fmt.Sprintf(
		"✅ <b>Monitoring started!</b>\n\n"+
			"📍 Address: <code>%s</code>\n"+
			"💰 Threshold: %s USDC (alerts when at or above)\n"+
			"⏱️ Check interval: %ds\n"+
			"🔔 Alert interval: %dm\n\n"+
			"I will check the balance shortly.\n"+
			"Change settings: /settings\n"+
			"Check state: /status",
		addr, threshold.String(), cfg.CheckIntervalSec, cfg.AlertIntervalMin,
	))
}

// handleStop cancels the task and removes the stored config entirely.
func (r *Router) handleStop(ctx context.Context, chatID int64) {
	cfg, err := r.repo.Get(ctx, chatID)
	if err != nil || !cfg.IsActive {
		r.sendText(chatID, noMonitorText)
		return
	}

	r.sched.Stop(ctx, chatID)
	if _, err := r.repo.Delete(ctx, chatID); err != nil {
		r.log.Error("delete config failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
	r.sendText(chatID, "✅ Monitoring stopped.")
}

func (r *Router) handleStatus(ctx context.Context, chatID int64) {
	st, err := r.sched.Status(ctx, chatID)
	if errors.Is(err, domain.ErrNoMonitor) {
		r.sendText(chatID, noMonitorText)
		return
	}
	if err != nil {
		r.log.Warn("status fetch failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, "❌ Could not fetch the balance right now. Please try again.")
		return
	}

	cfg := st.Config
	state := "💤 State: normal"
	if st.Qualifies {
		state = "🔥 State: threshold condition met"
	}

	var nextAlert string
	switch {
	case !cfg.AlertEnabled:
		nextAlert = "🔕 Alerts off"
	case st.NextAlertIn > 0:
		nextAlert = "⏳ Next alert: in " + domain.FormatDuration(st.NextAlertIn)
	default:
		nextAlert = "🔔 Alert armed"
	}

	r.sendHTML(chatID, fmt.Sprintf(
		"📊 <b>Current status</b>\n\n"+
			"💰 Balance: <b>%s USDC</b>\n%s\n\n"+
			"<b>Settings</b>\n"+
			"📍 Address: <code>%s</code>\n"+
			"💵 Threshold: %s USDC (%s)\n"+
			"⏱️ Check interval: %ds\n"+
			"🔔 Alert interval: %dm\n%s\n\n"+
			"Last check: %s\n\n"+
			"Change settings: /settings",
		st.Balance.StringFixed(2), state,
		cfg.Address,
		cfg.Threshold.String(), cfg.Direction,
		cfg.CheckIntervalSec,
		cfg.AlertIntervalMin, nextAlert,
		st.LastCheck.Format("2006-01-02 15:04:05 UTC"),
	))
}

func (r *Router) handleSettings(ctx context.Context, chatID int64) {
	cfg, err := r.repo.Get(ctx, chatID)
	if err != nil {
		r.sendText(chatID, noMonitorText)
		return
	}

	alerts := "🔕 Alerts: off"
	if cfg.AlertEnabled {
		alerts = "✅ Alerts: on"
	}
	running := "⏸️ State: stopped"
	if cfg.IsActive {
		running = "▶️ State: running"
	}

	r.sendHTML(chatID, fmt.Sprintf(
		"⚙️ <b>Current settings</b>\n\n"+
			"📍 Address: <code>%s</code>\n"+
			"💵 Threshold: %s USDC (%s)\n"+
			"⏱️ Check interval: %ds\n"+
			"🔔 Alert interval: %dm\n%s\n%s\n\n"+
			"<b>Change with:</b>\n"+
			"/address [address]\n"+
			"/threshold [amount]\n"+
			"/direction [above|below]\n"+
			"/checkinterval [seconds]\n"+
			"/alertinterval [minutes]\n"+
			"/alerton, /alertoff",
		cfg.Address,
		cfg.Threshold.String(), cfg.Direction,
		cfg.CheckIntervalSec,
		cfg.AlertIntervalMin,
		alerts, running,
	))
}

func (r *Router) handleAddress(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		r.sendText(chatID, "❌ Usage: /address [address]")
		return
	}
	addr, err := domain.ParseAddress(args[0])
	if err != nil {
		r.sendText(chatID, "❌ Invalid address. Expected 0x followed by 40 hex characters.")
		return
	}
	if !r.sched.UpdateConfig(ctx, chatID, domain.ConfigPatch{Address: &addr}) {
		r.sendText(chatID, firstText)
		return
	}
	r.sendHTML(chatID, "✅ Address updated.\n\n📍 New address: <code>"+addr+"</code>")
}

func (r *Router) handleThreshold(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		r.sendText(chatID, "❌ Usage: /threshold [amount]")
		return
	}
	threshold, err := domain.ParseThreshold(args[0])
	if err != nil {
		r.sendText(chatID, "❌ The threshold must be a number greater than 0.")
		return
	}
	if !r.sched.UpdateConfig(ctx, chatID, domain.ConfigPatch{Threshold: &threshold}) {
		r.sendText(chatID, firstText)
		return
	}
	r.sendText(chatID, "✅ Threshold updated: "+threshold.String()+" USDC")
}

func (r *Router) handleDirection(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		r.sendText(chatID, "❌ Usage: /direction [above|below]")
		return
	}
	dir, err := domain.ParseDirection(args[0])
	if err != nil {
		r.sendText(chatID, "❌ Direction must be \"above\" or \"below\".")
		return
	}
	if !r.sched.UpdateConfig(ctx, chatID, domain.ConfigPatch{Direction: &dir}) {
		r.sendText(chatID, firstText)
		return
	}
	r.sendText(chatID, "✅ Direction updated: alerts fire when the balance is "+string(dir)+" the threshold.")
}

// handleCheckInterval persists the new period and restarts the task, since a
// running ticker's period cannot be changed in place.
func (r *Router) handleCheckInterval(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		r.sendText(chatID, "❌ Usage: /checkinterval [seconds]")
		return
	}
	n, err := domain.ParseCheckInterval(args[0])
	if err != nil {
		r.sendText(chatID, fmt.Sprintf("❌ The check interval must be %d..%d seconds.",
			domain.MinCheckIntervalSec, domain.MaxCheckIntervalSec))
		return
	}

	r.sched.Stop(ctx, chatID)
	active := true
	if !r.sched.UpdateConfig(ctx, chatID, domain.ConfigPatch{CheckIntervalSec: &n, IsActive: &active}) {
		r.sendText(chatID, firstText)
		return
	}
	r.sched.Start(ctx, chatID)

	r.sendText(chatID, fmt.Sprintf("✅ Check interval updated: %ds", n))
}

func (r *Router) handleAlertInterval(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		r.sendText(chatID, "❌ Usage: /alertinterval [minutes]")
		return
	}
	n, err := domain.ParseAlertInterval(args[0])
	if err != nil {
		r.sendText(chatID, fmt.Sprintf("❌ The alert interval must be %d..%d minutes.",
			domain.MinAlertIntervalMin, domain.MaxAlertIntervalMin))
		return
	}
	if !r.sched.UpdateConfig(ctx, chatID, domain.ConfigPatch{AlertIntervalMin: &n}) {
		r.sendText(chatID, firstText)
		return
	}
	r.sendText(chatID, fmt.Sprintf("✅ Alert interval updated: %dm", n))
}

func (r *Router) handleAlertToggle(ctx context.Context, chatID int64, enabled bool) {
	if !r.sched.UpdateConfig(ctx, chatID, domain.ConfigPatch{AlertEnabled: &enabled}) {
		r.sendText(chatID, firstText)
		return
	}
	if enabled {
		r.sendText(chatID, "✅ Alerts are on. 🔔")
	} else {
		r.sendText(chatID, "✅ Alerts are off. 🔕\n\nThe balance is still monitored, you just won't be pinged.")
	}
}
