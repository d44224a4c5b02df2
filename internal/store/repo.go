package store

import (
	"context"

	"github.com/myungjungcrypto/usdc-telegram-bot/internal/domain"
)

// Repo defines storage operations for per-chat monitor configurations.
// All operations are single-row; no call spans more than one chat.
type Repo interface {
	// Get returns the config for chatID, or domain.ErrNoMonitor.
	Get(ctx context.Context, chatID int64) (*domain.MonitorConfig, error)
	// Upsert inserts or fully replaces a config row, refreshing LastUpdated.
	Upsert(ctx context.Context, cfg *domain.MonitorConfig) error
	// Patch merges non-nil fields of p over the existing row in one
	// transaction and returns the merged config, or domain.ErrNoMonitor.
	Patch(ctx context.Context, chatID int64, p domain.ConfigPatch) (*domain.MonitorConfig, error)
	// Delete removes the row; reports whether one existed.
	Delete(ctx context.Context, chatID int64) (bool, error)
	// SetActive flips the is_active flag without touching other fields.
	SetActive(ctx context.Context, chatID int64, active bool) error
	// ListActive returns every config with is_active set, for restart resume.
	ListActive(ctx context.Context) ([]domain.MonitorConfig, error)
	Close() error
}
