package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/udaykr117/smartsched/internal/config"
	"github.com/udaykr117/smartsched/internal/inbox"
	"github.com/udaykr117/smartsched/internal/logging"
	"github.com/udaykr117/smartsched/internal/scheduler"
	"github.com/udaykr117/smartsched/internal/store"
)

// Daemon runs the periodic status reconciler, the HTTP API and the inbox
// watcher until it receives SIGINT or SIGTERM.
type Daemon struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      config.Config
	store    *store.Store
	engine   *scheduler.Engine
	cron     *cron.Cron
	server   *Server
	watcher  *inbox.Watcher
	pidFile  string
	logger   *logging.Logger
	shutdown sync.Once
}

func NewDaemon(cfg config.Config, dataDir string, st *store.Store, engine *scheduler.Engine, logger *logging.Logger) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		store:   st,
		engine:  engine,
		cron:    cron.New(),
		pidFile: filepath.Join(dataDir, pidFileName),
		logger:  logger.With("daemon"),
	}
	d.server = NewServer(cfg.Server.Port, st, engine, cfg.Scheduling.AutoGenerate, logger)
	if cfg.Inbox.Enabled {
		dir := cfg.Inbox.Dir
		if dir == "" {
			dir = filepath.Join(dataDir, "inbox")
		}
		d.watcher = inbox.New(dir, st, inbox.WithLogger(logger), inbox.OnCreated(d.onJobsArrived))
	}
	return d
}

// onJobsArrived runs a generation pass for jobs that came in through the inbox.
func (d *Daemon) onJobsArrived(ctx context.Context, n int) {
	if !d.cfg.Scheduling.AutoGenerate {
		d.logger.Infof("inbox queued jobs=%d, auto-generate is off", n)
		return
	}
	res := d.engine.Generate(ctx)
	if !res.Success {
		d.logger.Errorf("generate after inbox failed err=%s", res.Error)
		return
	}
	d.logger.Infof("generate after inbox jobs=%d scheduled=%d deferred=%d", n, res.Count, res.Deferred)
}

func (d *Daemon) reconcileTick() {
	res := d.engine.SyncStatus(d.ctx)
	if !res.Success {
		d.logger.Errorf("reconcile tick failed err=%s", res.Error)
		return
	}
	if res.Count > 0 {
		d.logger.Infof("reconcile tick completed=%d", res.Count)
	}
}

func (d *Daemon) Run() error {
	if pid, _, err := readPIDFile(d.pidFile); err == nil && processAlive(pid) && pid != os.Getpid() {
		return fmt.Errorf("daemon already running (PID: %d)", pid)
	}
	if err := writePIDFile(d.pidFile, d.cfg.Server.Port); err != nil {
		return err
	}
	d.logger.Infof("daemon starting pid=%d port=%d reconcile=%q", os.Getpid(), d.cfg.Server.Port, d.cfg.ReconcileSpec())

	if _, err := d.cron.AddFunc(d.cfg.ReconcileSpec(), d.reconcileTick); err != nil {
		d.cleanup()
		return fmt.Errorf("schedule reconciler: %w", err)
	}
	// bring resource status up to date before serving
	d.reconcileTick()
	d.cron.Start()

	g, ctx := errgroup.WithContext(d.ctx)
	g.Go(func() error { return d.server.Start(ctx) })
	if d.watcher != nil {
		g.Go(func() error { return d.watcher.Run(ctx) })
	}
	go d.waitSignals(ctx)

	err := g.Wait()
	d.Shutdown()
	return err
}

// waitSignals blocks until a shutdown signal arrives or ctx ends.
func (d *Daemon) waitSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		d.logger.Infof("received signal=%s, initiating graceful shutdown", sig)
		d.cancel()
	case <-ctx.Done():
	}
}

// Shutdown stops every loop and removes the pid file. Safe to call more than once.
func (d *Daemon) Shutdown() {
	d.shutdown.Do(func() {
		d.logger.Infof("shutdown started")
		d.cancel()
		// waits for a running reconcile tick
		<-d.cron.Stop().Done()
		d.cleanup()
		d.logger.Infof("shutdown complete")
	})
}

func (d *Daemon) cleanup() {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		d.logger.Warnf("failed to remove PID file: %v", err)
	}
}
