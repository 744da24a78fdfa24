// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beaconkit/beaconkit/caching"
	"github.com/beaconkit/beaconkit/lib/clock"
	"github.com/beaconkit/beaconkit/protocol"
)

// ChunkShipper transmits one beacon chunk for a session. The sender
// uses this interface so that tests can substitute a fake
// implementation without needing a real collector.
type ChunkShipper interface {
	Ship(ctx context.Context, sessionID int32, chunk string) error
}

// collectorShipper ships chunks to the collector over HTTP and treats
// a non-success status response as a failure so the sender retries.
type collectorShipper struct {
	client *protocol.CollectorClient
}

// NewCollectorShipper wraps a CollectorClient as a ChunkShipper.
func NewCollectorShipper(client *protocol.CollectorClient) ChunkShipper {
	return &collectorShipper{client: client}
}

func (s *collectorShipper) Ship(ctx context.Context, _ int32, chunk string) error {
	response, err := s.client.SendBeacon(ctx, chunk)
	if err != nil {
		return err
	}
	if !response.OK() {
		return fmt.Errorf("collector answered status %d", response.ResponseCode)
	}
	return nil
}

// Backoff constants for the sender retry loop. Starts at
// initialBackoff and doubles on each consecutive failure, capped at
// maxBackoff. Resets to initialBackoff on success.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Config holds the sender's tuning knobs.
type Config struct {
	// SendInterval is how often the sender sweeps all cached
	// sessions.
	SendInterval time.Duration

	// MaxChunkSize is the soft chunk size cap passed to the cache. A
	// chunk may exceed it by one record.
	MaxChunkSize int

	// Prefix returns the identity prefix every chunk for the given
	// session starts with.
	Prefix func(sessionID int32) string
}

// Sender is the single goroutine that drains the cache toward the
// collector. Each transmission is one extraction round: extract a
// chunk, ship it, commit on success or roll back on failure so the
// records survive for the retry.
type Sender struct {
	cache   *caching.Cache
	shipper ChunkShipper
	config  Config
	clk     clock.Clock
	logger  *slog.Logger

	// sent counts successfully transmitted chunks. Read concurrently
	// by the status handler.
	sent atomic.Uint64

	// flush receives session IDs that ended and want an immediate
	// final send instead of waiting for the next sweep.
	flush chan int32

	mu       sync.Mutex
	finished map[int32]bool
}

// New creates a Sender draining the given cache through shipper.
func New(cache *caching.Cache, shipper ChunkShipper, config Config, clk clock.Clock, logger *slog.Logger) *Sender {
	return &Sender{
		cache:    cache,
		shipper:  shipper,
		config:   config,
		clk:      clk,
		logger:   logger,
		flush:    make(chan int32, 64),
		finished: make(map[int32]bool),
	}
}

// Sent returns the number of chunks transmitted so far.
func (s *Sender) Sent() uint64 {
	return s.sent.Load()
}

// FlushSession marks the session as ended and asks the sender to
// transmit its remaining data now. Once the session's cache entry is
// empty the sender deletes it. If the flush queue is full, the next
// periodic sweep picks the session up instead.
func (s *Sender) FlushSession(sessionID int32) {
	s.mu.Lock()
	s.finished[sessionID] = true
	s.mu.Unlock()

	select {
	case s.flush <- sessionID:
	default:
	}
}

// Run sweeps all sessions every SendInterval and serves flush
// requests between sweeps. It runs in its own goroutine for the
// relay's lifetime. When the context is cancelled, it makes one final
// drain pass with a short timeout before returning.
func (s *Sender) Run(ctx context.Context) {
	ticker := s.clk.NewTicker(s.config.SendInterval)
	defer ticker.Stop()

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case <-ticker.C:
			if !s.sendAll(ctx, &backoff) {
				s.drain()
				return
			}
		case sessionID := <-s.flush:
			if !s.sendSession(ctx, sessionID, &backoff) {
				s.drain()
				return
			}
			s.deleteIfFinished(sessionID)
		}
	}
}

// sendAll drains every cached session. Returns false when the context
// was cancelled mid-sweep.
func (s *Sender) sendAll(ctx context.Context, backoff *time.Duration) bool {
	for _, sessionID := range s.cache.BeaconIDs() {
		if !s.sendSession(ctx, sessionID, backoff) {
			return false
		}
		s.deleteIfFinished(sessionID)
	}
	return true
}

// sendSession transmits the session's cached data chunk by chunk.
// Every chunk is its own extraction round: committed on success,
// rolled back on failure. Failures back off exponentially (1s → 2s →
// 4s → ... → 30s cap) and retry until the context is cancelled.
// Returns false on cancellation.
func (s *Sender) sendSession(ctx context.Context, sessionID int32, backoff *time.Duration) bool {
	for {
		chunk := s.cache.NextBeaconChunk(sessionID, s.config.Prefix(sessionID), s.config.MaxChunkSize, protocol.BeaconDelimiter)
		if chunk == "" {
			return true
		}

		if err := s.shipper.Ship(ctx, sessionID, chunk); err != nil {
			s.cache.ResetChunkedData(sessionID)
			if ctx.Err() != nil {
				return false
			}
			s.logger.Warn("chunk ship failed, will retry",
				"session_id", sessionID,
				"error", err,
				"backoff", *backoff,
				"cache_bytes", s.cache.NumBytesInCache(),
			)
			select {
			case <-s.clk.After(*backoff):
			case <-ctx.Done():
				return false
			}
			*backoff = *backoff * 2
			if *backoff > maxBackoff {
				*backoff = maxBackoff
			}
			continue
		}

		s.cache.RemoveChunkedData(sessionID)
		s.sent.Add(1)
		*backoff = initialBackoff
	}
}

// deleteIfFinished frees the cache entry of an ended session once its
// data has fully shipped, and clears the finished marker.
func (s *Sender) deleteIfFinished(sessionID int32) {
	s.mu.Lock()
	finished := s.finished[sessionID]
	s.mu.Unlock()
	if !finished {
		return
	}

	if s.cache.IsEmpty(sessionID) {
		s.cache.DeleteEntry(sessionID)
	} else if sessionPresent(s.cache, sessionID) {
		// Still carrying data after a failed round rolled back; the
		// next sweep retries the flush.
		return
	}

	s.mu.Lock()
	delete(s.finished, sessionID)
	s.mu.Unlock()
}

// sessionPresent reports whether the cache still holds an entry for
// the session. IsEmpty alone cannot tell an absent session from one
// with pending data.
func sessionPresent(cache *caching.Cache, sessionID int32) bool {
	for _, id := range cache.BeaconIDs() {
		if id == sessionID {
			return true
		}
	}
	return false
}

// drain makes one best-effort pass over all sessions after shutdown,
// using a short overall timeout and no retries. This ensures that
// data accumulated during graceful shutdown has a chance to ship.
func (s *Sender) drain() {
	const drainTimeout = 5 * time.Second
	drainContext, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for _, sessionID := range s.cache.BeaconIDs() {
		for {
			chunk := s.cache.NextBeaconChunk(sessionID, s.config.Prefix(sessionID), s.config.MaxChunkSize, protocol.BeaconDelimiter)
			if chunk == "" {
				break
			}
			if err := s.shipper.Ship(drainContext, sessionID, chunk); err != nil {
				s.cache.ResetChunkedData(sessionID)
				s.logger.Warn("drain: chunk ship failed, abandoning remaining",
					"session_id", sessionID,
					"error", err,
					"cache_bytes", s.cache.NumBytesInCache(),
				)
				return
			}
			s.cache.RemoveChunkedData(sessionID)
			s.sent.Add(1)
		}
	}
}
