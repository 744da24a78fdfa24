// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

// Beaconkit-mock-collector is a drop-in collector for integration
// tests. It accepts the relay's beacon protocol exactly (gzip POST
// bodies, type=m/mts query dispatch), stores every received chunk in
// memory, and exposes an inspection endpoint so tests can verify what
// arrived.
//
// Endpoints:
//   - POST ?type=m: accept a beacon chunk, answer a status response
//   - GET ?type=mts: answer a timesync response with real timestamps
//   - GET /chunks: stored chunks, one per line, oldest first
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/beaconkit/beaconkit/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	listenAddr := pflag.String("listen", "127.0.0.1:9090",
		"address to serve the mock collector on")
	capture := pflag.Bool("capture", true,
		"capture flag returned in status responses; off tells agents to stop sending")
	sendIntervalSeconds := pflag.Int("send-interval-seconds", 120,
		"send interval advertised in status responses")
	maxBeaconSizeKB := pflag.Int("max-beacon-size-kb", 30,
		"beacon size limit advertised in status responses")
	showVersion := pflag.Bool("version", false,
		"print version information and exit")
	pflag.Parse()

	if *showVersion {
		version.Print("beaconkit-mock-collector")
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mock := newMockCollector(mockConfig{
		Capture:             *capture,
		SendIntervalSeconds: *sendIntervalSeconds,
		MaxBeaconSizeKB:     *maxBeaconSizeKB,
	}, logger)

	server := &http.Server{
		Addr:    *listenAddr,
		Handler: mock,
	}

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.ListenAndServe()
	}()

	logger.Info("mock collector running",
		"listen", *listenAddr,
		"capture", *capture,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-serveDone; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
