// Command relayd runs the relay broker: TCP listener, background
// dispatcher, optional mDNS advertisement, and optional WebSocket
// gateway. Grounded on the teacher's cmd/server/main.go.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/relaybroker/relay/internal/broker"
	"github.com/relaybroker/relay/internal/config"
	"github.com/relaybroker/relay/internal/discovery"
	"github.com/relaybroker/relay/internal/wsgateway"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("relayd terminated", "error", err)
		os.Exit(1)
	}

	logger.Info("relayd stopped cleanly")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	metrics := broker.NewMetrics(logger, cfg.MetricsInterval, time.Now())
	registry := broker.NewRegistry(logger, cfg.ReadTimeout, metrics)

	srv := broker.NewServer(logger, registry, metrics, cfg.ReadTimeout, cfg.WriteTimeout, cfg.BufferSize)

	errCh, err := srv.Start(cfg.Bind)
	if err != nil {
		return err
	}

	metricsDone := make(chan struct{})
	go metrics.Run(metricsDone, registry)

	var advertiser *discovery.Advertiser
	if cfg.MDNSEnabled {
		if port, perr := bindPort(cfg.Bind); perr == nil {
			advertiser, err = discovery.Start(port, logger)
			if err != nil {
				logger.Warn("mdns advertisement failed to start", "error", err)
			}
		}
	}

	var gateway *wsgateway.Gateway
	if cfg.WSBind != "" {
		gateway = wsgateway.New(cfg.WSBind, logger, func(conn net.Conn) {
			c := broker.NewConnection(conn, cfg.ReadTimeout, cfg.WriteTimeout, cfg.BufferSize, logger)
			srv.HandleConnection(c)
		})
		gateway.Start()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	close(metricsDone)
	if gateway != nil {
		_ = gateway.Stop()
	}
	if advertiser != nil {
		advertiser.Stop()
	}
	return srv.Stop()
}

func bindPort(bind string) (int, error) {
	_, portStr, err := net.SplitHostPort(bind)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}

func logLevel(level string) slog.Leveler {
	var lvl slog.Level

	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	lv := new(slog.LevelVar)
	lv.Set(lvl)
	return lv
}
