// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package caching

import (
	"log/slog"
	"time"

	"github.com/beaconkit/beaconkit/lib/clock"
)

// EvictionStrategy is one pass of a cache-bounding policy. The
// Evictor executes all configured strategies on every wake-up; each
// strategy decides internally whether it has work to do.
type EvictionStrategy interface {
	Execute()
}

// AgeEvictionStrategy evicts staged records older than a configured
// maximum age from every session. Records claimed by an active
// delivery round are untouched — eviction only ever sees staged data.
type AgeEvictionStrategy struct {
	cache  *Cache
	maxAge time.Duration
	clk    clock.Clock
	logger *slog.Logger
}

// NewAgeEvictionStrategy creates an age strategy. A maxAge of zero
// disables it.
func NewAgeEvictionStrategy(cache *Cache, maxAge time.Duration, clk clock.Clock, logger *slog.Logger) *AgeEvictionStrategy {
	return &AgeEvictionStrategy{cache: cache, maxAge: maxAge, clk: clk, logger: logger}
}

// Execute removes records older than now − maxAge across all
// sessions.
func (s *AgeEvictionStrategy) Execute() {
	if s.maxAge <= 0 {
		return
	}

	minTimestamp := s.clk.Now().Add(-s.maxAge).UnixMilli()
	removed := 0
	for _, id := range s.cache.BeaconIDs() {
		removed += s.cache.EvictRecordsByAge(id, minTimestamp)
	}

	if removed > 0 {
		s.logger.Debug("age eviction removed records",
			"removed", removed,
			"min_timestamp", minTimestamp,
		)
	}
}

// SpaceEvictionStrategy shrinks the cache when it exceeds an upper
// byte bound. It round-robins single-record evictions across all
// sessions so no session loses disproportionately, and stops once the
// cache is back under the lower bound.
type SpaceEvictionStrategy struct {
	cache      *Cache
	lowerBound int64
	upperBound int64
	logger     *slog.Logger
}

// NewSpaceEvictionStrategy creates a space strategy. An upperBound of
// zero disables it. lowerBound must be below upperBound; the config
// layer validates this.
func NewSpaceEvictionStrategy(cache *Cache, lowerBound, upperBound int64, logger *slog.Logger) *SpaceEvictionStrategy {
	return &SpaceEvictionStrategy{
		cache:      cache,
		lowerBound: lowerBound,
		upperBound: upperBound,
		logger:     logger,
	}
}

// Execute evicts oldest-first, one record per session per sweep,
// until the cache drops under the lower bound. Eviction is
// best-effort: if every remaining record is tied up in delivery
// rounds, a sweep removes nothing and Execute returns rather than
// spinning.
func (s *SpaceEvictionStrategy) Execute() {
	if s.upperBound <= 0 || s.cache.NumBytesInCache() <= s.upperBound {
		return
	}

	before := s.cache.NumBytesInCache()
	removed := 0

	for s.cache.NumBytesInCache() > s.lowerBound {
		sweepRemoved := 0
		for _, id := range s.cache.BeaconIDs() {
			if s.cache.NumBytesInCache() <= s.lowerBound {
				break
			}
			sweepRemoved += s.cache.EvictRecordsByNumber(id, 1)
		}
		if sweepRemoved == 0 {
			break
		}
		removed += sweepRemoved
	}

	s.logger.Info("space eviction shrank cache",
		"removed_records", removed,
		"bytes_before", before,
		"bytes_after", s.cache.NumBytesInCache(),
	)
}
