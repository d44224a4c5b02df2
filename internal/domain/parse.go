package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrIntervalRange    = errors.New("interval out of range")
)

// Interval bounds enforced at the command boundary.
const (
	MinCheckIntervalSec = 10
	MaxCheckIntervalSec = 3600
	MinAlertIntervalMin = 1
	MaxAlertIntervalMin = 1440
)

// ParseAddress validates a 0x-prefixed 40-hex-digit account address and
// returns it lowercased.
func ParseAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return "", fmt.Errorf("%w: want 0x followed by 40 hex chars", ErrInvalidAddress)
	}
	for _, r := range strings.ToLower(s[2:]) {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", fmt.Errorf("%w: non-hex char %q", ErrInvalidAddress, r)
		}
	}
	return strings.ToLower(s), nil
}

// ParseThreshold parses a positive decimal amount.
func ParseThreshold(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidThreshold, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be > 0", ErrInvalidThreshold)
	}
	return d, nil
}

// ParseDirection strictly parses "above" or "below". Unknown strings are
// rejected, never defaulted.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(DirectionAbove):
		return DirectionAbove, nil
	case string(DirectionBelow):
		return DirectionBelow, nil
	}
	return "", fmt.Errorf("%w: %q (want above|below)", ErrInvalidDirection, s)
}

// DirectionFromStored normalizes a value read back from storage. Rows written
// before the direction column existed (or corrupted ones) default to above,
// which was the only behavior of earlier versions.
func DirectionFromStored(s string) Direction {
	if d, err := ParseDirection(s); err == nil {
		return d
	}
	return DirectionAbove
}

// ParseCheckInterval parses a polling period in seconds within [10, 3600].
func ParseCheckInterval(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrIntervalRange, s)
	}
	if n < MinCheckIntervalSec || n > MaxCheckIntervalSec {
		return 0, fmt.Errorf("%w: check interval must be %d..%d seconds", ErrIntervalRange, MinCheckIntervalSec, MaxCheckIntervalSec)
	}
	return n, nil
}

// ParseAlertInterval parses a cooldown in minutes within [1, 1440].
func ParseAlertInterval(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrIntervalRange, s)
	}
	if n < MinAlertIntervalMin || n > MaxAlertIntervalMin {
		return 0, fmt.Errorf("%w: alert interval must be %d..%d minutes", ErrIntervalRange, MinAlertIntervalMin, MaxAlertIntervalMin)
	}
	return n, nil
}
