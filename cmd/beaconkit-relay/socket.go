// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/beaconkit/beaconkit/caching"
	"github.com/beaconkit/beaconkit/lib/clock"
	"github.com/beaconkit/beaconkit/lib/codec"
	"github.com/beaconkit/beaconkit/protocol"
	"github.com/beaconkit/beaconkit/sender"
)

// submitRequest is the wire format of one socket frame. Producers
// serialize their own beacon records; the relay only routes them.
type submitRequest struct {
	// Action is one of add-event, add-action, end-session, status.
	Action string `cbor:"action"`

	// SessionID names the session the record belongs to. Required for
	// everything but status.
	SessionID int32 `cbor:"session_id"`

	// Timestamp is the record's capture time in epoch milliseconds.
	Timestamp int64 `cbor:"timestamp"`

	// Payload is the pre-serialized record text.
	Payload string `cbor:"payload"`
}

// submitResponse answers every frame. Status is set only for the
// status action.
type submitResponse struct {
	OK     bool            `cbor:"ok"`
	Error  string          `cbor:"error,omitempty"`
	Status *statusResponse `cbor:"status,omitempty"`
}

// statusResponse reports relay health for liveness checks and
// operational monitoring.
type statusResponse struct {
	UptimeSeconds float64 `cbor:"uptime_seconds"`
	CacheBytes    int64   `cbor:"cache_bytes"`
	Sessions      int     `cbor:"sessions"`
	ChunksShipped uint64  `cbor:"chunks_shipped"`
}

// Relay holds the daemon's runtime state, shared between the socket
// handlers and the sender goroutine.
type Relay struct {
	cache        *caching.Cache
	sender       *sender.Sender
	beaconConfig protocol.BeaconConfig
	clk          clock.Clock
	startedAt    time.Time
	logger       *slog.Logger

	// mu protects beacons. One Beacon per live session supplies the
	// identity prefix for that session's chunks.
	mu      sync.Mutex
	beacons map[int32]*protocol.Beacon
}

// NewRelay creates the relay state. The sender field is wired by the
// caller after construction because the sender needs the relay's
// prefix callback.
func NewRelay(cache *caching.Cache, beaconConfig protocol.BeaconConfig, clk clock.Clock, logger *slog.Logger) *Relay {
	return &Relay{
		cache:        cache,
		beaconConfig: beaconConfig,
		clk:          clk,
		startedAt:    clk.Now(),
		logger:       logger,
		beacons:      make(map[int32]*protocol.Beacon),
	}
}

// chunkPrefix returns the identity prefix for the session's chunks.
// Passed to the sender as its Prefix callback.
func (r *Relay) chunkPrefix(sessionID int32) string {
	return r.beacon(sessionID).ChunkPrefix()
}

// beacon returns the session's Beacon, creating it on first use.
func (r *Relay) beacon(sessionID int32) *protocol.Beacon {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.beacons[sessionID]
	if !ok {
		b = protocol.NewBeacon(r.cache, r.beaconConfig, sessionID, r.clk)
		r.beacons[sessionID] = b
	}
	return b
}

// pruneBeacons drops beacons for sessions the cache no longer holds.
// A pruned beacon is recreated lazily if a late retry still needs its
// prefix.
func (r *Relay) pruneBeacons() {
	live := make(map[int32]bool)
	for _, id := range r.cache.BeaconIDs() {
		live[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.beacons {
		if !live[id] {
			delete(r.beacons, id)
		}
	}
}

// serve accepts producer connections until the listener is closed.
// Each connection gets its own goroutine and may submit any number of
// frames.
func (r *Relay) serve(ctx context.Context, listener net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			r.handleConn(conn)
		}()
	}
}

// handleConn decodes CBOR frames from the connection and answers each
// one. Returns when the producer disconnects or sends garbage.
func (r *Relay) handleConn(conn io.ReadWriter) {
	decoder := codec.NewDecoder(conn)
	encoder := codec.NewEncoder(conn)

	for {
		var request submitRequest
		if err := decoder.Decode(&request); err != nil {
			if !errors.Is(err, io.EOF) {
				r.logger.Warn("dropping producer connection", "error", err)
			}
			return
		}

		response := r.handleRequest(&request)
		if err := encoder.Encode(response); err != nil {
			r.logger.Warn("writing response failed", "error", err)
			return
		}
	}
}

// handleRequest dispatches one frame.
func (r *Relay) handleRequest(request *submitRequest) *submitResponse {
	switch request.Action {
	case "add-event":
		return r.handleAdd(request, caching.KindEvent)
	case "add-action":
		return r.handleAdd(request, caching.KindAction)
	case "end-session":
		return r.handleEndSession(request)
	case "status":
		return r.handleStatus()
	default:
		return &submitResponse{Error: "unknown action: " + request.Action}
	}
}

// handleAdd routes a pre-serialized record into the cache. The cache
// creates the session on first write and never refuses a record; the
// evictor bounds memory afterward.
func (r *Relay) handleAdd(request *submitRequest, kind caching.RecordKind) *submitResponse {
	if request.Payload == "" {
		return &submitResponse{Error: "payload is required"}
	}

	switch kind {
	case caching.KindAction:
		r.cache.AddActionData(request.SessionID, request.Timestamp, request.Payload)
	default:
		r.cache.AddEventData(request.SessionID, request.Timestamp, request.Payload)
	}
	return &submitResponse{OK: true}
}

// handleEndSession asks the sender for an immediate final flush. The
// sender deletes the cache entry once the session's data has shipped.
func (r *Relay) handleEndSession(request *submitRequest) *submitResponse {
	r.sender.FlushSession(request.SessionID)
	r.pruneBeacons()
	return &submitResponse{OK: true}
}

// handleStatus reports operational stats.
func (r *Relay) handleStatus() *submitResponse {
	return &submitResponse{
		OK: true,
		Status: &statusResponse{
			UptimeSeconds: r.clk.Now().Sub(r.startedAt).Seconds(),
			CacheBytes:    r.cache.NumBytesInCache(),
			Sessions:      len(r.cache.BeaconIDs()),
			ChunksShipped: r.sender.Sent(),
		},
	}
}
