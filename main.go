package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/nroccia/go-bluez-api/api"
	"github.com/nroccia/go-bluez-api/backend"
	"github.com/nroccia/go-bluez-api/config"
	"github.com/nroccia/go-bluez-api/logger"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		logger.Fatal("[%s] Failed to load config: %v", config.AppName, err)
	}

	// Set log level from config
	logger.SetLevel(cfg.LogLevel)

	// Global context for the entire application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize backends
	b, err := backend.New(ctx, cfg.Bluetooth, cfg.Zeroconf)
	if err != nil {
		logger.Fatal("[%s] Backend initialization failed: %v", config.AppName, err)
	}

	// New api server; must exist before Start so the broadcaster drains
	// the coordinator's event stream from the first event on.
	server := api.NewServer(ctx, cfg.Api, b)
	if server == nil && b.Bluetooth != nil {
		// Without the API the event stream still needs a consumer.
		go func() {
			for range b.Bluetooth.Events() {
			}
		}()
	}

	// Start enabled backends
	if err := b.Start(); err != nil {
		logger.Fatal("[%s] Backend start failed: %v", config.AppName, err)
	}

	notifySystemd(ctx)

	// Channel to synchronize shutdown
	shutdownDone := make(chan struct{})
	// Goroutine for signal handling
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("[%s] Shutdown signal received, stopping server...", config.AppName)

		// Cancel the global context - stops all listeners
		cancel()

		// Cleanup backends
		b.Close()

		// Signal that cleanup is complete
		close(shutdownDone)
	}()

	logger.Info("[%s] started", config.AppName)
	if server != nil {
		if err := server.Run(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("[%s] http server error: %v", config.AppName, err)
		}
	}

	<-shutdownDone
	logger.Info("[%s] stopped", config.AppName)
}

// notifySystemd reports readiness and, when a watchdog is configured for
// the unit, keeps it fed at half its interval.
func notifySystemd(ctx context.Context) {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("[%s] sd_notify failed: %v", config.AppName, err)
	} else if !ok {
		logger.Debug("[%s] not running under systemd notify", config.AppName)
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
					logger.Warn("[%s] watchdog notify failed: %v", config.AppName, err)
				}
			}
		}
	}()
}
