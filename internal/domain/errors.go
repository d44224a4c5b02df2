package domain

import "errors"

// ErrNoMonitor means no monitoring configuration exists for the chat.
// Distinct from transient failures: the caller should suggest /monitor.
var ErrNoMonitor = errors.New("no monitor configured")
