// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/beaconkit/beaconkit/caching"
	"github.com/beaconkit/beaconkit/lib/clock"
	"github.com/beaconkit/beaconkit/lib/config"
	"github.com/beaconkit/beaconkit/lib/version"
	"github.com/beaconkit/beaconkit/protocol"
	"github.com/beaconkit/beaconkit/sender"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.String("config", "",
		"path to the relay config file (default: $BEACONKIT_CONFIG)")
	logLevel := pflag.String("log-level", "info",
		"log level: debug, info, warn, or error")
	showVersion := pflag.Bool("version", false,
		"print version information and exit")
	pflag.Parse()

	if *showVersion {
		version.Print("beaconkit-relay")
		return nil
	}

	logger, err := newLogger(*logLevel)
	if err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	cache := caching.NewCache()
	evictor := caching.NewEvictor(cache, caching.EvictorConfig{
		MaxRecordAge:     cfg.Cache.MaxRecordAge.Std(),
		LowerMemoryBound: cfg.Cache.LowerMemoryBound,
		UpperMemoryBound: cfg.Cache.UpperMemoryBound,
		Interval:         cfg.Cache.EvictionInterval.Std(),
	}, clk, logger)

	client := protocol.NewCollectorClient(
		cfg.Collector.URL,
		cfg.Collector.ApplicationID,
		cfg.Collector.ServerID,
		cfg.Collector.RequestTimeout.Std(),
		logger,
	)

	relay := NewRelay(cache, protocol.BeaconConfig{
		ApplicationID:      cfg.Collector.ApplicationID,
		ApplicationName:    cfg.Collector.ApplicationName,
		ApplicationVersion: cfg.Collector.ApplicationVersion,
		DeviceID:           cfg.Collector.DeviceID,
		OperatingSystem:    runtime.GOOS,
		ServerID:           cfg.Collector.ServerID,
	}, clk, logger)

	snd := sender.New(cache, sender.NewCollectorShipper(client), sender.Config{
		SendInterval: cfg.Sender.SendInterval.Std(),
		MaxChunkSize: cfg.Sender.MaxChunkSize,
		Prefix:       relay.chunkPrefix,
	}, clk, logger)
	relay.sender = snd

	// Remove a stale socket from a previous run before binding.
	if err := os.Remove(cfg.Relay.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", cfg.Relay.SocketPath, err)
	}
	listener, err := net.Listen("unix", cfg.Relay.SocketPath)
	if err != nil {
		return fmt.Errorf("binding relay socket: %w", err)
	}
	defer os.Remove(cfg.Relay.SocketPath)

	go evictor.Run(ctx)

	senderDone := make(chan struct{})
	go func() {
		snd.Run(ctx)
		close(senderDone)
	}()

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- relay.serve(ctx, listener)
	}()

	logger.Info("beacon relay running",
		"socket", cfg.Relay.SocketPath,
		"collector", cfg.Collector.URL,
		"application_id", cfg.Collector.ApplicationID,
		"send_interval", cfg.Sender.SendInterval.Std(),
		"max_chunk_size", cfg.Sender.MaxChunkSize,
	)

	// Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// Stop accepting submissions, then wait for the sender's final
	// drain pass.
	listener.Close()
	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}
	<-senderDone

	return nil
}

// newLogger builds the process logger writing key-value text to
// stderr.
func newLogger(level string) (*slog.Logger, error) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})), nil
}
