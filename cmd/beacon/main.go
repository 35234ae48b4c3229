package main

import (
	"log"
	"os"

	"github.com/sainohq/beacon/internal/api"
	"github.com/sainohq/beacon/internal/config"
	"github.com/sainohq/beacon/internal/controller"
	"github.com/sainohq/beacon/internal/display"
	"github.com/sainohq/beacon/internal/heartbeat"
	"github.com/sainohq/beacon/internal/transport"
)

func main() {
	cfg := config.Load()

	logWriter, closeLog, err := cfg.OpenLogWriter()
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer closeLog()
	logger := config.NewLogger(logWriter, cfg.LogLevel)

	logger.Info("beacon: starting",
		"listen_addr", cfg.ListenAddr,
		"endpoint", cfg.EndpointURL,
		"interval", cfg.Interval,
	)

	client := transport.NewHTTPClient(cfg.EndpointURL, cfg.Secret, cfg.ClientName, cfg.RequestTimeout)
	broker := heartbeat.NewBroker()

	var observer controller.Observer
	if cfg.Display {
		observer = display.NewTerminal(os.Stdout, cfg.Interval)
	}

	engineCfg := heartbeat.Config{
		Interval:       cfg.Interval,
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	}
	ctrl := controller.New(engineCfg, client, broker, observer, logger)

	if cfg.Identifier != "" {
		if err := ctrl.Start(cfg.Identifier); err != nil {
			log.Fatalf("failed to autostart heartbeat: %v", err)
		}
	}

	srv := api.NewServer(cfg.ListenAddr, ctrl, broker, logger, cfg.ShutdownJoin)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	logger.Info("beacon: exited")
}
