package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision is the outcome of evaluating one balance observation.
type Decision struct {
	Qualifies    bool
	Fire         bool          // send a notification now
	ResetEdge    bool          // condition is false: clear the last-alert timestamp
	CooldownLeft time.Duration // >0 when suppressed by the cooldown window
}

// Qualifies reports whether balance satisfies the alert condition of cfg.
// Above is inclusive: a balance exactly at the threshold qualifies.
func Qualifies(balance decimal.Decimal, cfg *MonitorConfig) bool {
	if cfg.Direction == DirectionBelow {
		return balance.LessThan(cfg.Threshold)
	}
	return balance.GreaterThanOrEqual(cfg.Threshold)
}

// Evaluate decides whether an observation should produce a notification.
// lastAlert is the wall-clock time of the previous emission for this chat;
// the zero time means no alert has fired since the last edge reset.
//
// The cooldown is edge-scoped: whenever the condition is observed false the
// caller must clear lastAlert (ResetEdge), so the next qualifying observation
// fires immediately regardless of how recently a prior alert went out.
func Evaluate(balance decimal.Decimal, cfg *MonitorConfig, lastAlert, now time.Time) Decision {
	if !Qualifies(balance, cfg) {
		return Decision{ResetEdge: true}
	}
	if !cfg.AlertEnabled {
		// Still observed and logged upstream; bookkeeping untouched.
		return Decision{Qualifies: true}
	}
	if lastAlert.IsZero() {
		return Decision{Qualifies: true, Fire: true}
	}
	elapsed := now.Sub(lastAlert)
	if elapsed >= cfg.AlertInterval() {
		return Decision{Qualifies: true, Fire: true}
	}
	return Decision{Qualifies: true, CooldownLeft: cfg.AlertInterval() - elapsed}
}

// NextAlertIn returns how long until the cooldown expires, without mutating
// anything. Zero when no alert is pending a cooldown.
func NextAlertIn(cfg *MonitorConfig, lastAlert, now time.Time) time.Duration {
	if lastAlert.IsZero() {
		return 0
	}
	left := cfg.AlertInterval() - now.Sub(lastAlert)
	if left < 0 {
		return 0
	}
	return left
}
