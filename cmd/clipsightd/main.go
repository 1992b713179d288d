package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"clipsight/internal/config"
	"clipsight/internal/daemon"
	"clipsight/internal/logging"
	"clipsight/internal/media"
	"clipsight/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := media.Open(cfg)
	if err != nil {
		log.Fatalf("open media store: %v", err)
	}

	deps := buildStageDeps(cfg, store, logger)
	manager := workflow.NewManager(cfg, store, logger, deps)

	d, err := daemon.New(cfg, store, logger, manager, deps.Tools)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("clipsightd shutting down")
}
