package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	dg "github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/benjamonnguyen/pomod"
	"github.com/benjamonnguyen/pomod/cmd/pomod/models"
	"github.com/benjamonnguyen/pomod/desktop"
	"github.com/benjamonnguyen/pomod/discordgo"
	"github.com/benjamonnguyen/pomod/sqlite"
	"github.com/benjamonnguyen/pomod/sqlite/migrations"
)

var ErrAlreadyRunning = errors.New("daemon already running")

const (
	probeTimeout    = time.Second
	shutdownTimeout = 10 * time.Second
)

// daemon owns every long-lived component. It is built once per process.
type daemon struct {
	cfg   pomod.Config
	clock clockwork.Clock
	l     log.Logger

	guard      *guardedPomodoro
	scheduler  *tickScheduler
	dispatcher *eventDispatcher
	server     *server
	feed       *statusFeed

	socketLn net.Listener
	feedLn   net.Listener
	closers  []func() error
}

func newDaemon(cfg pomod.Config, clock clockwork.Clock, logger log.Logger) (*daemon, error) {
	d := &daemon{
		cfg:        cfg,
		clock:      clock,
		l:          logger,
		dispatcher: newEventDispatcher(clock, logger),
	}

	if cfg.Notify {
		n := desktop.NewNotifier(pomod.AppName, desktop.DefaultExpiration)
		d.dispatcher.AddSink("desktop", n)
		d.closers = append(d.closers, n.Close)
	}
	if cfg.Notify && cfg.DiscordEnabled() {
		cl, err := dg.New("")
		if err != nil {
			return nil, fmt.Errorf("init discord client: %w", err)
		}
		cl.Client = &http.Client{Timeout: 20 * time.Second}
		cl.UserAgent = fmt.Sprintf("%s (%s, v%s)", pomod.AppName, RepoURL, Version)
		d.dispatcher.AddSink("discord", discordgo.NewWebhookAdapter(cl, cfg.DiscordWebhookID, cfg.DiscordWebhookToken, logger))
	}

	var recorder *historyRecorder
	if cfg.History {
		logger.Info("opening history db", "path", cfg.HistoryDB)
		db, err := sqlite.Open(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, db.Close)
		if err := db.RunMigrations(migrations.FS); err != nil {
			_ = d.Close()
			return nil, err
		}
		tx, dbGetter := txStdLib.NewTransactor(
			db.DB(),
			txStdLib.NestedTransactionsSavepoints,
		)
		repo := sqlite.NewHistoryRepo(dbGetter, logger)
		if last, err := repo.ListHistory(context.Background(), 1); err != nil {
			logger.Warn("failed to read session history", "err", err)
		} else if len(last) > 0 {
			logger.Info("last recorded session", "session", last[0].Session, "ended_at", last[0].EndedAt, "skipped", last[0].Skipped)
		}
		recorder = newHistoryRecorder(repo, tx, cfg.HistoryRetention, logger)
		d.dispatcher.SetRecorder(recorder)
	}

	p := models.New(pomodoroConfig(cfg, d.dispatcher))
	p.OnTransition(d.dispatcher.RecordTransition)
	d.guard = newGuardedPomodoro(p)

	d.scheduler = newTickScheduler(clock, d.guard, logger)
	d.server = newServer(d.guard, clock, logger)
	if recorder != nil {
		d.server.SetStats(recorder)
	}

	if cfg.FeedAddr != "" {
		d.feed = newStatusFeed(d.guard.Status, logger)
		d.scheduler.AfterTick(func(pomod.Status) { d.feed.Refresh() })
		d.server.OnChange(d.feed.Refresh)
	}
	return d, nil
}

func pomodoroConfig(cfg pomod.Config, n models.Notifier) models.Config {
	return models.Config{
		FocusDuration:      cfg.Focus,
		ShortBreakDuration: cfg.ShortBreak,
		LongBreakDuration:  cfg.LongBreak,
		LongBreakInterval:  cfg.LongBreakInterval,
		InitialSession:     pomod.FocusSession,
		ShouldNotify:       cfg.Notify,
		Notifier:           n,
	}
}

// Listen binds the control socket and, when configured, the feed address.
func (d *daemon) Listen() error {
	ln, err := listenUnix(d.cfg.SocketPath)
	if err != nil {
		return err
	}
	d.socketLn = ln

	if d.feed != nil {
		feedLn, err := net.Listen("tcp", d.cfg.FeedAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen on feed address: %w", err)
		}
		d.feedLn = feedLn
	}
	return nil
}

// Run serves until ctx is done, then stops every component and waits for
// them. Listen must have succeeded first.
func (d *daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Go(func() {
		d.dispatcher.Run(ctx)
	})
	wg.Go(func() {
		d.scheduler.Run(ctx)
	})

	if d.feedLn != nil {
		httpSrv := &http.Server{
			Handler:           d.feed.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		wg.Go(func() {
			d.l.Info("serving status feed", "addr", d.feedLn.Addr().String())
			if err := httpSrv.Serve(d.feedLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.l.Error("status feed stopped", "err", err)
			}
		})
		wg.Go(func() {
			<-ctx.Done()
			d.feed.Close()
			shutdownCtx, shutdownCtxC := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCtxC()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				d.l.Error("failed to shut down status feed", "err", err)
			}
		})
	}

	d.l.Info("listening", "socket", d.cfg.SocketPath)
	err := d.server.Serve(ctx, d.socketLn)
	cancel()
	d.server.Wait()
	wg.Wait()
	_ = os.Remove(d.cfg.SocketPath)
	return err
}

// FeedAddr returns the bound feed address, or "" when the feed is off.
func (d *daemon) FeedAddr() string {
	if d.feedLn == nil {
		return ""
	}
	return d.feedLn.Addr().String()
}

// Close releases notifier connections and the history db.
func (d *daemon) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// listenUnix refuses to take over a socket another daemon still answers on
// and clears a stale one left by a crash.
func listenUnix(path string) (net.Listener, error) {
	if conn, err := net.DialTimeout("unix", path, probeTimeout); err == nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w on %s", ErrAlreadyRunning, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return ln, nil
}
