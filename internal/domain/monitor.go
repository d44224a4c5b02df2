package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction selects which side of the threshold triggers an alert.
type Direction string

const (
	// DirectionBelow fires while balance < threshold.
	DirectionBelow Direction = "below"
	// DirectionAbove fires while balance >= threshold (inclusive).
	DirectionAbove Direction = "above"
)

// MonitorConfig is the per-chat monitoring settings row.
type MonitorConfig struct {
	ChatID           int64
	Address          string // lowercase 0x-prefixed
	Threshold        decimal.Decimal
	Direction        Direction
	CheckIntervalSec int // seconds between balance checks
	AlertIntervalMin int // minimum minutes between consecutive alerts
	AlertEnabled     bool
	IsActive         bool
	LastUpdated      time.Time // UTC
}

// ConfigPatch is a partial update; nil fields are left untouched.
type ConfigPatch struct {
	Address          *string
	Threshold        *decimal.Decimal
	Direction        *Direction
	CheckIntervalSec *int
	AlertIntervalMin *int
	AlertEnabled     *bool
	IsActive         *bool
}

// Defaults applied when a chat first starts monitoring.
const (
	DefaultCheckIntervalSec = 10
	DefaultAlertIntervalMin = 5
	DefaultDirection        = DirectionAbove
)

// CheckInterval returns the polling period as a duration.
func (c *MonitorConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSec) * time.Second
}

// AlertInterval returns the notification cooldown as a duration.
func (c *MonitorConfig) AlertInterval() time.Duration {
	return time.Duration(c.AlertIntervalMin) * time.Minute
}
