package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/myungjungcrypto/usdc-telegram-bot/internal/balance"
	"github.com/myungjungcrypto/usdc-telegram-bot/internal/config"
	"github.com/myungjungcrypto/usdc-telegram-bot/internal/monitor"
	"github.com/myungjungcrypto/usdc-telegram-bot/internal/store"
	"github.com/myungjungcrypto/usdc-telegram-bot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	sched   *monitor.Scheduler
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting usdc-telegram-bot",
		zap.String("rpc", a.cfg.RPCURL),
		zap.String("token", a.cfg.TokenAddress),
		zap.String("http", a.cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	fetcher := balance.New(a.cfg.RPCURL, a.cfg.TokenAddress, a.log)
	notifier := telegram.NewNotifier(a.bot, a.log)
	a.sched = monitor.New(repo, fetcher, notifier, a.log)
	a.router = telegram.NewRouter(a.bot, a.log, repo, a.sched)

	a.resumeMonitors(ctx)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil
		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// resumeMonitors restarts every is_active monitor after a process restart.
// Ordering between chats does not matter; each Start is independent.
func (a *App) resumeMonitors(ctx context.Context) {
	configs, err := a.repo.ListActive(ctx)
	if err != nil {
		a.log.Error("list active monitors failed", zap.Error(err))
		return
	}
	resumed := 0
	for _, cfg := range configs {
		if a.sched.Start(ctx, cfg.ChatID) {
			resumed++
		}
	}
	a.log.Info("monitors resumed", zap.Int("count", resumed))
}

func (a *App) shutdown() {
	// Stop tasks without flipping is_active, so they resume next start.
	a.sched.StopAll()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	if a.repo != nil {
		_ = a.repo.Close()
	}
}
