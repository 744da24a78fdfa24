// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// mockConfig controls the status responses the mock hands out.
type mockConfig struct {
	Capture             bool
	SendIntervalSeconds int
	MaxBeaconSizeKB     int
}

// receivedChunk is one stored beacon chunk with its arrival metadata.
type receivedChunk struct {
	ReceivedAt    time.Time
	ApplicationID string
	ServerID      string
	Body          string
}

// mockCollector stores beacon chunks in memory for test assertions.
type mockCollector struct {
	config mockConfig
	logger *slog.Logger

	mu     sync.Mutex
	chunks []receivedChunk
}

func newMockCollector(config mockConfig, logger *slog.Logger) *mockCollector {
	return &mockCollector{config: config, logger: logger}
}

// ServeHTTP dispatches on the request type query parameter the agent
// protocol uses, falling back to the inspection endpoints.
func (m *mockCollector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("type") {
	case "m":
		m.handleBeacon(w, r)
	case "mts":
		m.handleTimeSync(w, r)
	default:
		if r.URL.Path == "/chunks" {
			m.handleChunks(w, r)
			return
		}
		http.NotFound(w, r)
	}
}

// handleBeacon accepts one beacon POST, decompressing the body when
// the agent gzip-encoded it, and answers the configured status
// response.
func (m *mockCollector) handleBeacon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "beacon requests must be POST", http.StatusMethodNotAllowed)
		return
	}

	body := io.Reader(r.Body)
	if r.Header.Get("Content-Encoding") == "gzip" {
		reader, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, "invalid gzip body", http.StatusBadRequest)
			return
		}
		defer reader.Close()
		body = reader
	}

	data, err := io.ReadAll(body)
	if err != nil {
		http.Error(w, "reading body failed", http.StatusBadRequest)
		return
	}

	chunk := receivedChunk{
		ReceivedAt:    time.Now(),
		ApplicationID: r.URL.Query().Get("app"),
		ServerID:      r.URL.Query().Get("srvid"),
		Body:          string(data),
	}

	m.mu.Lock()
	m.chunks = append(m.chunks, chunk)
	total := len(m.chunks)
	m.mu.Unlock()

	m.logger.Debug("beacon received",
		"application_id", chunk.ApplicationID,
		"bytes", len(chunk.Body),
		"total_chunks", total,
	)

	capture := 0
	if m.config.Capture {
		capture = 1
	}
	fmt.Fprintf(w, "type=m&cp=%d&si=%d&bl=%d",
		capture, m.config.SendIntervalSeconds, m.config.MaxBeaconSizeKB)
}

// handleTimeSync answers with the mock's real receive and send
// timestamps so agents can compute a plausible clock offset.
func (m *mockCollector) handleTimeSync(w http.ResponseWriter, _ *http.Request) {
	receiveTime := time.Now().UnixMilli()
	fmt.Fprintf(w, "type=mts&t1=%d&t2=%d", receiveTime, time.Now().UnixMilli())
}

// handleChunks lists every stored chunk body, oldest first, one per
// line. Tests scrape this to verify delivery.
func (m *mockCollector) handleChunks(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, chunk := range m.chunks {
		fmt.Fprintln(w, chunk.Body)
	}
}

// receivedCount returns the number of stored chunks.
func (m *mockCollector) receivedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}
