package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/myungjungcrypto/usdc-telegram-bot/internal/domain"
	"github.com/myungjungcrypto/usdc-telegram-bot/internal/store"
)

// Fetcher obtains the current token balance for an address. May fail
// transiently; the scheduler never lets a fetch failure kill a task.
type Fetcher interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Alert carries the context of one threshold crossing to the notifier.
type Alert struct {
	Balance          decimal.Decimal
	Address          string
	Threshold        decimal.Decimal
	Direction        domain.Direction
	AlertIntervalMin int
}

// Notifier delivers an alert to a chat. Best effort: errors are logged by
// the scheduler and never retried.
type Notifier interface {
	SendAlert(chatID int64, a Alert) error
}

// Status is the result of an interactive status query.
type Status struct {
	Config      *domain.MonitorConfig
	Balance     decimal.Decimal
	Qualifies   bool
	NextAlertIn time.Duration // 0 when no cooldown is pending
	LastCheck   time.Time
}

// task is the handle for one chat's polling loop.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler owns one recurring polling task per active chat. It is the sole
// owner of the task registry and the per-chat last-alert timestamps; config
// is re-read from the store on every tick so settings changes (threshold,
// direction, enabled flag) apply without a restart. Only the check interval
// needs an explicit stop+start, because the ticker period is fixed when the
// task is scheduled.
type Scheduler struct {
	repo   store.Repo
	fetch  Fetcher
	notify Notifier
	log    *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	tasks     map[int64]*task
	lastAlert map[int64]time.Time
}

// New creates a Scheduler with no running tasks.
func New(repo store.Repo, fetch Fetcher, notify Notifier, log *zap.Logger) *Scheduler {
	return &Scheduler{
		repo:      repo,
		fetch:     fetch,
		notify:    notify,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		tasks:     make(map[int64]*task),
		lastAlert: make(map[int64]time.Time),
	}
}

// Start begins (or restarts) monitoring for a chat. Returns false when no
// config row exists. Any previously running task for the chat is cancelled
// first, so two tasks never run concurrently for the same chat. The first
// check runs immediately; subsequent checks follow the configured interval.
func (s *Scheduler) Start(ctx context.Context, chatID int64) bool {
	cfg, err := s.repo.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNoMonitor) {
			s.log.Debug("start ignored, no config", zap.Int64("chatID", chatID))
		} else {
			s.log.Error("start: config read failed", zap.Error(err), zap.Int64("chatID", chatID))
		}
		return false
	}

	// Idempotent restart: tear down an existing task before scheduling.
	if s.cancelTask(chatID) {
		s.log.Info("restarting monitoring", zap.Int64("chatID", chatID))
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.tasks[chatID] = t
	s.mu.Unlock()

	go s.run(taskCtx, chatID, t, cfg.CheckInterval())

	s.log.Info("monitoring started",
		zap.Int64("chatID", chatID),
		zap.String("address", cfg.Address),
		zap.Int("checkIntervalSec", cfg.CheckIntervalSec),
	)
	return true
}

// run is the per-chat polling loop. All ticks for one chat execute here
// sequentially, so tick N+1 can never overlap an in-flight tick N.
func (s *Scheduler) run(ctx context.Context, chatID int64, t *task, interval time.Duration) {
	defer close(t.done)

	// Eager first check so a /status right after /monitor sees fresh state.
	if !s.tick(ctx, chatID) {
		s.selfStop(ctx, chatID, t)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(ctx, chatID) {
				s.selfStop(ctx, chatID, t)
				return
			}
		}
	}
}

// tick performs one check cycle. Returns false when the task should stop
// itself (config gone or deactivated, or context cancelled).
func (s *Scheduler) tick(ctx context.Context, chatID int64) bool {
	if ctx.Err() != nil {
		return false
	}

	cfg, err := s.repo.Get(ctx, chatID)
	if errors.Is(err, domain.ErrNoMonitor) {
		s.log.Info("config gone, stopping task", zap.Int64("chatID", chatID))
		return false
	}
	if err != nil {
		// Store hiccup: skip this tick, the task lives on.
		s.log.Warn("tick: config read failed", zap.Error(err), zap.Int64("chatID", chatID))
		return true
	}
	if !cfg.IsActive {
		s.log.Info("config deactivated, stopping task", zap.Int64("chatID", chatID))
		return false
	}

	bal, err := s.fetch.Balance(ctx, cfg.Address)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		s.log.Warn("balance fetch failed, skipping tick",
			zap.Error(err),
			zap.Int64("chatID", chatID),
			zap.String("address", cfg.Address),
		)
		return true
	}

	now := s.now()
	last := s.lastAlertAt(chatID)
	d := domain.Evaluate(bal, cfg, last, now)

	s.log.Debug("balance observed",
		zap.Int64("chatID", chatID),
		zap.String("balance", bal.String()),
		zap.Bool("qualifies", d.Qualifies),
	)

	switch {
	case d.ResetEdge:
		if !last.IsZero() {
			s.log.Info("condition cleared, cooldown reset", zap.Int64("chatID", chatID))
			s.clearLastAlert(chatID)
		}
	case d.Fire:
		if ctx.Err() != nil {
			// Stopped while we were fetching; drop the stale alert.
			return false
		}
		// The cooldown advances on the decision to emit, not on delivery
		// success, so a flaky chat channel cannot cause alert storms.
		s.setLastAlert(chatID, now)
		alert := Alert{
			Balance:          bal,
			Address:          cfg.Address,
			Threshold:        cfg.Threshold,
			Direction:        cfg.Direction,
			AlertIntervalMin: cfg.AlertIntervalMin,
		}
		if err := s.notify.SendAlert(chatID, alert); err != nil {
			s.log.Error("alert delivery failed", zap.Error(err), zap.Int64("chatID", chatID))
		} else {
			s.log.Info("alert sent",
				zap.Int64("chatID", chatID),
				zap.String("balance", bal.String()),
				zap.String("threshold", cfg.Threshold.String()),
			)
		}
	case d.CooldownLeft > 0:
		s.log.Debug("alert suppressed, cooling down",
			zap.Int64("chatID", chatID),
			zap.Duration("remaining", d.CooldownLeft),
		)
	}
	return true
}

// selfStop removes a task that terminated from inside its own loop and
// records the deactivation durably so a process restart does not resurrect it.
func (s *Scheduler) selfStop(ctx context.Context, chatID int64, t *task) {
	s.mu.Lock()
	if cur, ok := s.tasks[chatID]; ok && cur == t {
		delete(s.tasks, chatID)
		delete(s.lastAlert, chatID)
	}
	s.mu.Unlock()

	if ctx.Err() != nil {
		// External cancellation: Stop or StopAll owns the cleanup.
		return
	}
	if err := s.repo.SetActive(context.Background(), chatID, false); err != nil {
		s.log.Error("persist deactivation failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

// Stop cancels a chat's task and waits for its loop to exit, clears the
// in-memory alert state, and persists is_active=false. Reports whether a
// task was actually running. After Stop returns no further side effects
// happen for the chat.
func (s *Scheduler) Stop(ctx context.Context, chatID int64) bool {
	if !s.cancelTask(chatID) {
		return false
	}
	if err := s.repo.SetActive(ctx, chatID, false); err != nil {
		s.log.Error("persist deactivation failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
	s.log.Info("monitoring stopped", zap.Int64("chatID", chatID))
	return true
}

// cancelTask removes and cancels the task handle for chatID, waiting for the
// loop goroutine to finish. Reports whether a task existed.
func (s *Scheduler) cancelTask(chatID int64) bool {
	s.mu.Lock()
	t, ok := s.tasks[chatID]
	if ok {
		delete(s.tasks, chatID)
		delete(s.lastAlert, chatID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	t.cancel()
	<-t.done
	return true
}

// Status fetches a fresh balance and reports the current alert state for an
// interactive caller. Unlike a background tick, fetch failures here are
// returned to the caller. The cooldown state is read without mutation.
func (s *Scheduler) Status(ctx context.Context, chatID int64) (*Status, error) {
	cfg, err := s.repo.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}

	bal, err := s.fetch.Balance(ctx, cfg.Address)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &Status{
		Config:      cfg,
		Balance:     bal,
		Qualifies:   domain.Qualifies(bal, cfg),
		NextAlertIn: domain.NextAlertIn(cfg, s.lastAlertAt(chatID), now),
		LastCheck:   now,
	}, nil
}

// UpdateConfig merges a partial settings change; false when no row exists.
// Changes take effect on the chat's next tick, except the check interval,
// which the caller applies with an explicit Stop+Start.
func (s *Scheduler) UpdateConfig(ctx context.Context, chatID int64, p domain.ConfigPatch) bool {
	if _, err := s.repo.Patch(ctx, chatID, p); err != nil {
		if !errors.Is(err, domain.ErrNoMonitor) {
			s.log.Error("config patch failed", zap.Error(err), zap.Int64("chatID", chatID))
		}
		return false
	}
	return true
}

// ActiveCount returns the number of currently registered tasks.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// StopAll cancels every running task and waits for the loops to exit.
// Used at shutdown; it does not flip is_active, so monitoring resumes on
// the next process start.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = make(map[int64]*task)
	s.lastAlert = make(map[int64]time.Time)
	s.mu.Unlock()

	for chatID, t := range tasks {
		t.cancel()
		<-t.done
		s.log.Debug("task stopped", zap.Int64("chatID", chatID))
	}
}

func (s *Scheduler) lastAlertAt(chatID int64) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAlert[chatID]
}

func (s *Scheduler) setLastAlert(chatID int64, t time.Time) {
	s.mu.Lock()
	s.lastAlert[chatID] = t
	s.mu.Unlock()
}

func (s *Scheduler) clearLastAlert(chatID int64) {
	s.mu.Lock()
	delete(s.lastAlert, chatID)
	s.mu.Unlock()
}
