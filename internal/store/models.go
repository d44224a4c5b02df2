package store

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/myungjungcrypto/usdc-telegram-bot/internal/domain"
)

// monitorRow mirrors the monitors table; thresholds are stored as TEXT to
// keep decimal exactness through sqlite.
type monitorRow struct {
	chatID           int64
	address          string
	threshold        string
	direction        string
	checkIntervalSec int
	alertIntervalMin int
	alertEnabled     int
	isActive         int
	lastUpdated      int64
}

func (r *monitorRow) toDomain() (*domain.MonitorConfig, error) {
	th, err := decimal.NewFromString(r.threshold)
	if err != nil {
		return nil, err
	}
	return &domain.MonitorConfig{
		ChatID:           r.chatID,
		Address:          r.address,
		Threshold:        th,
		Direction:        domain.DirectionFromStored(r.direction),
		CheckIntervalSec: r.checkIntervalSec,
		AlertIntervalMin: r.alertIntervalMin,
		AlertEnabled:     r.alertEnabled != 0,
		IsActive:         r.isActive != 0,
		LastUpdated:      time.Unix(r.lastUpdated, 0).UTC(),
	}, nil
}

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
