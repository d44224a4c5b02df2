package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/myungjungcrypto/usdc-telegram-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

const monitorColumns = `chat_id, address, threshold, direction,
	check_interval_sec, alert_interval_min, alert_enabled, is_active, last_updated`

func scanMonitor(s interface{ Scan(...any) error }) (*domain.MonitorConfig, error) {
	var row monitorRow
	if err := s.Scan(
		&row.chatID, &row.address, &row.threshold, &row.direction,
		&row.checkIntervalSec, &row.alertIntervalMin,
		&row.alertEnabled, &row.isActive, &row.lastUpdated,
	); err != nil {
		return nil, err
	}
	return row.toDomain()
}

// Get returns the monitor config for chatID, or domain.ErrNoMonitor.
func (r *SQLiteRepo) Get(ctx context.Context, chatID int64) (*domain.MonitorConfig, error) {
	cfg, err := scanMonitor(r.db.QueryRowContext(ctx, `
		SELECT `+monitorColumns+`
		FROM monitors
		WHERE chat_id = ?`,
		chatID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoMonitor
	}
	return cfg, err
}

// Upsert inserts or fully replaces a config row. LastUpdated is set to now
// regardless of the value on cfg.
func (r *SQLiteRepo) Upsert(ctx context.Context, cfg *domain.MonitorConfig) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	now := time.Now().UTC().Unix()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monitors (
			chat_id, address, threshold, direction,
			check_interval_sec, alert_interval_min, alert_enabled, is_active, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			address            = excluded.address,
			threshold          = excluded.threshold,
			direction          = excluded.direction,
			check_interval_sec = excluded.check_interval_sec,
			alert_interval_min = excluded.alert_interval_min,
			alert_enabled      = excluded.alert_enabled,
			is_active          = excluded.is_active,
			last_updated       = excluded.last_updated`,
		cfg.ChatID, cfg.Address, cfg.Threshold.String(), string(cfg.Direction),
		cfg.CheckIntervalSec, cfg.AlertIntervalMin,
		boolToInt(cfg.AlertEnabled), boolToInt(cfg.IsActive), now,
	)
	return err
}

// Patch merges the non-nil fields of p over the existing row inside one
// transaction, refreshes last_updated, and returns the merged config.
func (r *SQLiteRepo) Patch(ctx context.Context, chatID int64, p domain.ConfigPatch) (*domain.MonitorConfig, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	cfg, err := scanMonitor(tx.QueryRowContext(ctx, `
		SELECT `+monitorColumns+`
		FROM monitors
		WHERE chat_id = ?`,
		chatID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoMonitor
	}
	if err != nil {
		return nil, err
	}

	if p.Address != nil {
		cfg.Address = *p.Address
	}
	if p.Threshold != nil {
		cfg.Threshold = *p.Threshold
	}
	if p.Direction != nil {
		cfg.Direction = *p.Direction
	}
	if p.CheckIntervalSec != nil {
		cfg.CheckIntervalSec = *p.CheckIntervalSec
	}
	if p.AlertIntervalMin != nil {
		cfg.AlertIntervalMin = *p.AlertIntervalMin
	}
	if p.AlertEnabled != nil {
		cfg.AlertEnabled = *p.AlertEnabled
	}
	if p.IsActive != nil {
		cfg.IsActive = *p.IsActive
	}
	cfg.LastUpdated = time.Now().UTC()

	if _, err := tx.ExecContext(ctx, `
		UPDATE monitors SET
			address            = ?,
			threshold          = ?,
			direction          = ?,
			check_interval_sec = ?,
			alert_interval_min = ?,
			alert_enabled      = ?,
			is_active          = ?,
			last_updated       = ?
		WHERE chat_id = ?`,
		cfg.Address, cfg.Threshold.String(), string(cfg.Direction),
		cfg.CheckIntervalSec, cfg.AlertIntervalMin,
		boolToInt(cfg.AlertEnabled), boolToInt(cfg.IsActive),
		cfg.LastUpdated.Unix(), chatID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Delete removes the row for chatID; reports whether one existed.
func (r *SQLiteRepo) Delete(ctx context.Context, chatID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM monitors WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetActive toggles the is_active flag for a chat.
func (r *SQLiteRepo) SetActive(ctx context.Context, chatID int64, active bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE monitors
		SET is_active = ?, last_updated = ?
		WHERE chat_id = ?`,
		boolToInt(active), time.Now().UTC().Unix(), chatID,
	)
	return err
}

// ListActive returns every config with is_active set, ordered by chat_id.
// Used at startup to resume monitoring after a process restart.
func (r *SQLiteRepo) ListActive(ctx context.Context) ([]domain.MonitorConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+monitorColumns+`
		FROM monitors
		WHERE is_active = 1
		ORDER BY chat_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.MonitorConfig
	for rows.Next() {
		cfg, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
