package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/schwarzekatzer/netwatchdog/internal/config"
	"github.com/schwarzekatzer/netwatchdog/internal/history"
	"github.com/schwarzekatzer/netwatchdog/internal/httpapi"
	"github.com/schwarzekatzer/netwatchdog/internal/logging"
	"github.com/schwarzekatzer/netwatchdog/internal/monitor"
	"github.com/schwarzekatzer/netwatchdog/internal/notify"
	"github.com/schwarzekatzer/netwatchdog/internal/probe"
	"github.com/schwarzekatzer/netwatchdog/internal/procscan"
	"github.com/schwarzekatzer/netwatchdog/internal/reboot"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	tracker := reboot.NewTracker(cfg.StateFile, cfg.MaxReboots, cfg.RebootCooldown(), logger)
	st := tracker.Load()
	logger.Info("reboot_budget_loaded",
		zap.Int("count", st.Count),
		zap.Int("max_reboots", cfg.MaxReboots),
	)

	mon := monitor.New(
		logger,
		procscan.New(),
		probe.NewProber(cfg),
		tracker,
		reboot.OSRebooter{},
		notify.Multi{notify.NewSlack(cfg.SlackWebhook)},
		history.New(512),
		cfg.CheckInterval(),
		cfg.FailureThreshold,
		cfg.RemoteProcesses,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := httpapi.NewServer(logger, mon)
	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api_listen_error", zap.Error(err))
		}
	}()

	mon.Run(ctx)

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
}
