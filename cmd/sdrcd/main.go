// Command sdrcd runs the SDR device-driver control core with a
// simulated hardware backend, exposing the control-plane operations
// over a local HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/sdr-control/sdrc/internal/api"
	"github.com/sdr-control/sdrc/internal/audit"
	"github.com/sdr-control/sdrc/internal/auth"
	"github.com/sdr-control/sdrc/internal/config"
	"github.com/sdr-control/sdrc/internal/devtree"
	"github.com/sdr-control/sdrc/internal/driver"
	"github.com/sdr-control/sdrc/internal/hints"
	"github.com/sdr-control/sdrc/internal/periph"
	"github.com/sdr-control/sdrc/internal/periph/sim"
	"github.com/sdr-control/sdrc/internal/subdev"
	"github.com/sdr-control/sdrc/internal/telemetry"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to the YAML device topology.")
	listen := pflag.StringP("listen", "l", "", "Listen address override.")
	logLevel := pflag.String("log-level", "", "Log level override (debug, info, warn, error).")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration", "err", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "sdrcd",
	})
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	logger.Info("starting SDR control core", "version", api.Version, "mboards", len(cfg.Mboards))

	tree := devtree.New()
	mbs := make([]*periph.Motherboard, len(cfg.Mboards))
	for i, mbCfg := range cfg.Mboards {
		simMB := sim.NewMotherboard(i, mbCfg.Radios, periph.TransportPath(mbCfg.Transport))
		simMB.MB.TickRate = mbCfg.TickRate
		for k, v := range mbCfg.RecvArgs {
			simMB.MB.RecvArgs[k] = v
		}
		for k, v := range mbCfg.SendArgs {
			simMB.MB.SendArgs[k] = v
		}
		seedTree(tree, i, mbCfg)
		mbs[i] = simMB.MB
	}

	auditLog, err := audit.NewLogger(cfg.AuditDir)
	if err != nil {
		log.Fatal("failed to open audit log", "err", err)
	}

	hub := telemetry.NewHub()
	drv := driver.New(driver.Options{
		Mboards:      mbs,
		Tree:         tree,
		Synchronizer: &sim.Synchronizer{},
		Compat:       subdev.TreeChecker{Tree: tree},
		Platform:     hints.DetectPlatform(),
		Hub:          hub,
		Audit:        auditLog,
		Logger:       logger,
	})

	server := api.NewServer(drv, hub, auth.NewVerifier(cfg.AuthSecret), logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Listen); err != nil {
			serverErr <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig)
	case err := <-serverErr:
		logger.Error("server failed", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Stop()
	if err := server.Stop(ctx); err != nil {
		logger.Error("error stopping server", "err", err)
	}
	if err := auditLog.Close(); err != nil {
		logger.Error("error closing audit log", "err", err)
	}
	logger.Info("shutdown complete")
}

// seedTree publishes a motherboard's frontend wiring descriptors into
// the device tree, where the routing configurator reads them from.
func seedTree(tree *devtree.Tree, mbIndex int, mbCfg config.MotherboardConfig) {
	for slot, db := range mbCfg.Dboards {
		for fe, conn := range db.RxFrontends {
			tree.SetString(subdev.ConnectionPath(mbIndex, subdev.RX, subdev.Pair{DB: slot, SD: fe}), conn)
		}
		for fe, conn := range db.TxFrontends {
			tree.SetString(subdev.ConnectionPath(mbIndex, subdev.TX, subdev.Pair{DB: slot, SD: fe}), conn)
		}
	}
}
