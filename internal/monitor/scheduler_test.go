package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/myungjungcrypto/usdc-telegram-bot/internal/domain"
)

// fakeRepo is an in-memory store.Repo.
type fakeRepo struct {
	mu      sync.Mutex
	configs map[int64]domain.MonitorConfig
	getErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{configs: make(map[int64]domain.MonitorConfig)}
}

func (f *fakeRepo) Get(_ context.Context, chatID int64) (*domain.MonitorConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	cfg, ok := f.configs[chatID]
	if !ok {
		return nil, domain.ErrNoMonitor
	}
	c := cfg
	return &c, nil
}

func (f *fakeRepo) Upsert(_ context.Context, cfg *domain.MonitorConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[cfg.ChatID] = *cfg
	return nil
}

func (f *fakeRepo) Patch(_ context.Context, chatID int64, p domain.ConfigPatch) (*domain.MonitorConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[chatID]
	if !ok {
		return nil, domain.ErrNoMonitor
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
	f.configs[chatID] = cfg
	return &cfg, nil
}

func (f *fakeRepo) Delete(_ context.Context, chatID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.configs[chatID]
	delete(f.configs, chatID)
	return ok, nil
}

func (f *fakeRepo) SetActive(_ context.Context, chatID int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg, ok := f.configs[chatID]; ok {
		cfg.IsActive = active
		f.configs[chatID] = cfg
	}
	return nil
}

func (f *fakeRepo) ListActive(_ context.Context) ([]domain.MonitorConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.MonitorConfig
	for _, cfg := range f.configs {
		if cfg.IsActive {
			res = append(res, cfg)
		}
	}
	return res, nil
}

func (f *fakeRepo) Close() error { return nil }

func (f *fakeRepo) isActive(chatID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configs[chatID].IsActive
}

// fakeFetcher returns a scripted balance or error.
type fakeFetcher struct {
	mu    sync.Mutex
	bal   decimal.Decimal
	err   error
	calls int
}

func (f *fakeFetcher) Balance(context.Context, string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.bal, nil
}

func (f *fakeFetcher) set(bal string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bal, f.err = decimal.RequireFromString(bal), err
}

// fakeNotifier records alerts and can be told to fail.
type fakeNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (f *fakeNotifier) SendAlert(_ int64, a Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type fixture struct {
	repo   *fakeRepo
	fetch  *fakeFetcher
	notify *fakeNotifier
	sched  *Scheduler
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		repo:   newFakeRepo(),
		fetch:  &fakeFetcher{bal: decimal.Zero},
		notify: &fakeNotifier{},
		now:    time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC),
	}
	fx.sched = New(fx.repo, fx.fetch, fx.notify, zap.NewNop())
	fx.sched.now = func() time.Time { return fx.now }
	return fx
}

func (fx *fixture) addConfig(chatID int64, dir domain.Direction, threshold string) {
	fx.repo.configs[chatID] = domain.MonitorConfig{
		ChatID:           chatID,
		Address:          "0xc47756133753280c37b227c24782984e021c4544",
		Threshold:        decimal.RequireFromString(threshold),
		Direction:        dir,
		CheckIntervalSec: 1,
		AlertIntervalMin: 5,
		AlertEnabled:     true,
		IsActive:         true,
	}
}

func (fx *fixture) advance(d time.Duration) { fx.now = fx.now.Add(d) }

func TestStartWithoutConfigIsNoop(t *testing.T) {
	fx := newFixture(t)
	if fx.sched.Start(context.Background(), 42) {
		t.Fatal("Start should return false without a config")
	}
	if n := fx.sched.ActiveCount(); n != 0 {
		t.Fatalf("want 0 tasks, got %d", n)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	fx.addConfig(1, domain.DirectionAbove, "1000")
	fx.fetch.set("500", nil)

	ctx := context.Background()
	if !fx.sched.Start(ctx, 1) {
		t.Fatal("first Start failed")
	}
	if !fx.sched.Start(ctx, 1) {
		t.Fatal("restart failed")
	}
	if n := fx.sched.ActiveCount(); n != 1 {
		t.Fatalf("want exactly 1 task after restart, got %d", n)
	}
	fx.sched.StopAll()
}

func TestStopThenStartNeverDoublesTasks(t *testing.T) {
	fx := newFixture(t)
	fx.addConfig(1, domain.DirectionAbove, "1000")
	fx.fetch.set("500", nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		fx.sched.Start(ctx, 1)
		fx.sched.Stop(ctx, 1)
		// Stop persisted is_active=false; restore for the next Start's tick.
		_ = fx.repo.SetActive(ctx, 1, true)
	}
	if n := fx.sched.ActiveCount(); n != 0 {
		t.Fatalf("want 0 tasks after final Stop, got %d", n)
	}

	fx.sched.Start(ctx, 1)
	if n := fx.sched.ActiveCount(); n != 1 {
		t.Fatalf("want 1 task, got %d", n)
	}
	fx.sched.StopAll()
}

func TestStopReportsWhetherTaskExisted(t *testing.T) {
	fx := newFixture(t)
	fx.addConfig(1, domain.DirectionAbove, "1000")
	fx.fetch.set("500", nil)

	ctx := context.Background()
	if fx.sched.Stop(ctx, 1) {
		t.Fatal("Stop with no running task should report false")
	}
	fx.sched.Start(ctx, 1)
	if !fx.sched.Stop(ctx, 1) {
		t.Fatal("Stop with a running task should report true")
	}
	if fx.repo.isActive(1) {
		t.Fatal("Stop should persist is_active=false")
	}
}

func TestTickFiresAndCoolsDown(t *testing.T) {
	fx := newFixture(t)
	fx.addConfig(1, domain.DirectionBelow, "1000")
	ctx := context.Background()

	fx.fetch.set("1200", nil)
	if !fx.sched.tick(ctx, 1) {
		t.Fatal("tick should keep the task alive")
	}
	if fx.notify.count() != 0 {
		t.Fatal("1200 should not alert")
	}

	fx.fetch.set("800", nil)
	fx.sched.tick(ctx, 1)
	if fx.notify.count() != 1 {
		t.Fatalf("800 should alert, got %d alerts", fx.notify.count())
	}

	// Within the 5m cooldown: suppressed.
	fx.advance(time.Minute)
	fx.fetch.set("850", nil)
	fx.sched.tick(ctx, 1)
	if fx.notify.count() != 1 {
		t.Fatal("850 inside cooldown should not alert")
	}

	// Condition goes false: edge reset.
	fx.advance(time.Minute)
	fx.fetch.set("1200", nil)
	fx.sched.tick(ctx, 1)

	// Qualifying again fires immediately even though <5m since alert #1.
	fx.advance(time.Minute)
	fx.fetch.set("700", nil)
	fx.sched.tick(ctx, 1)
	if fx.notify.count() != 2 {
		t.Fatalf("want immediate alert after edge reset, got %d alerts", fx.notify.count())
	}
}

func TestTickFetchFailureSkipsWithoutStateChange(t *testing.T) {
	fx := newFixture(t)
	fx.addConfig(1, domain.DirectionBelow, "1000")
	ctx := context.Background()

	fx.fetch.set("800", nil)
	fx.sched.tick(ctx, 1) // alert #1
	before := fx.sched.lastAlertAt(1)

	fx.advance(time.Minute)
	fx.fetch.set("800", errors.New("rpc unreachable"))
	if !fx.sched.tick(ctx, 1) {
		t.Fatal("fetch failure must not stop the task")
	}
	if fx.notify.count() != 1 {
		t.Fatal("failed tick must not alert")
	}
	if !fx.sched.lastAlertAt(1).Equal(before) {
		t.Fatal("failed tick must not touch alert state")
	}

	// Next tick succeeds normally, as if the failure never happened.
	fx.advance(10 * time.Minute)
	fx.fetch.set("800", nil)
	fx.sched.tick(ctx, 1)
	if fx.notify.count() != 2 {
		t.Fatal("tick after a failure should behave normally")
	}
}

func TestTickSelfStopsOnMissingOrInactiveConfig(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if fx.sched.tick(ctx, 99) {
		t.Fatal("missing config should stop the task")
	}

	fx.addConfig(2, domain.DirectionAbove, "100")
	_ = fx.repo.SetActive(ctx, 2, false)
	if fx.sched.tick(ctx, 2) {
		t.Fatal("deactivated config should stop the task")
	}
}

func TestNotifierFailureStillAdvancesCooldown(t *testing.T) {
	fx := newFixture(t)
	fx.addConfig(1, domain.DirectionAbove, "100")
	fx.notify.err = errors.New("chat unavailable")
	ctx := context.Background()

	fx.fetch.set("150", nil)
	fx.sched.tick(ctx, 1)
	if fx.sched.lastAlertAt(1).IsZero() {
		t.Fatal("delivery failure must still set the cooldown timestamp")
	}

	// No storm: the next tick is suppressed despite the failure.
	fx.advance(time.Minute)
	fx.sched.tick(ctx, 1)
	if fx.notify.count() != 1 {
		t.Fatalf("want 1 delivery attempt, got %d", fx.notify.count())
	}
}

func TestDisabledAlertsStillPolled(t *testing.T) {
	fx := newFixture(t)
	fx.addConfig(1, domain.DirectionAbove, "100")
	ctx := context.Background()

	enabled := false
	if _, err := fx.repo.Patch(ctx, 1, domain.ConfigPatch{AlertEnabled: &enabled}); err != nil {
		t.Fatal(err)
	}

	fx.fetch.set("150", nil)
	if !fx.sched.tick(ctx, 1) {
		t.Fatal("disabled alerts must not stop the task")
	}
	if fx.notify.count() != 0 {
		t.Fatal("disabled alerts must not notify")
	}
	if fx.fetch.calls == 0 {
		t.Fatal("balance should still be polled")
	}
}

func TestStatus(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if _, err := fx.sched.Status(ctx, 1); !errors.Is(err, domain.ErrNoMonitor) {
		t.Fatalf("want ErrNoMonitor, got %v", err)
	}

	fx.addConfig(1, domain.DirectionBelow, "1000")
	fetchErr := errors.New("rpc unreachable")
	fx.fetch.set("0", fetchErr)
	if _, err := fx.sched.Status(ctx, 1); !errors.Is(err, fetchErr) {
		t.Fatalf("want surfaced fetch error, got %v", err)
	}

	fx.fetch.set("800", nil)
	fx.sched.tick(ctx, 1) // fires, starts cooldown
	fx.advance(2 * time.Minute)

	st, err := fx.sched.Status(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Qualifies {
		t.Fatal("800 < 1000 should qualify")
	}
	if want := 3 * time.Minute; st.NextAlertIn != want {
		t.Fatalf("want next alert in %v, got %v", want, st.NextAlertIn)
	}
	if !st.LastCheck.Equal(fx.now) {
		t.Fatalf("want last check %v, got %v", fx.now, st.LastCheck)
	}

	// Status must not mutate the cooldown.
	if st2, _ := fx.sched.Status(ctx, 1); st2.NextAlertIn != st.NextAlertIn {
		t.Fatal("Status mutated alert state")
	}
}

func TestUpdateConfig(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	th := decimal.RequireFromString("500")
	if fx.sched.UpdateConfig(ctx, 1, domain.ConfigPatch{Threshold: &th}) {
		t.Fatal("UpdateConfig without a row should report false")
	}

	fx.addConfig(1, domain.DirectionAbove, "1000")
	if !fx.sched.UpdateConfig(ctx, 1, domain.ConfigPatch{Threshold: &th}) {
		t.Fatal("UpdateConfig with a row should report true")
	}
	cfg, err := fx.repo.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Threshold.Equal(th) {
		t.Fatalf("threshold not patched: %s", cfg.Threshold)
	}
}

func TestStartRunsEagerTick(t *testing.T) {
	fx := newFixture(t)
	fx.addConfig(1, domain.DirectionAbove, "100")
	fx.fetch.set("150", nil)

	fx.sched.Start(context.Background(), 1)
	defer fx.sched.StopAll()

	deadline := time.After(2 * time.Second)
	for fx.notify.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("eager first tick did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStopPreventsFurtherTicks(t *testing.T) {
	fx := newFixture(t)
	fx.addConfig(1, domain.DirectionAbove, "1000")
	fx.fetch.set("500", nil)
	ctx := context.Background()

	fx.sched.Start(ctx, 1)
	fx.sched.Stop(ctx, 1)

	fx.fetch.mu.Lock()
	calls := fx.fetch.calls
	fx.fetch.mu.Unlock()

	time.Sleep(1500 * time.Millisecond) // longer than the 1s check interval

	fx.fetch.mu.Lock()
	after := fx.fetch.calls
	fx.fetch.mu.Unlock()
	if after != calls {
		t.Fatalf("ticks continued after Stop: %d -> %d fetches", calls, after)
	}
}
