// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package caching

import (
	"context"
	"log/slog"
	"time"

	"github.com/beaconkit/beaconkit/lib/clock"
)

// EvictorConfig bounds the cache.
type EvictorConfig struct {
	// MaxRecordAge is the oldest a staged record may get before the
	// age strategy removes it. Zero disables age eviction.
	MaxRecordAge time.Duration

	// LowerMemoryBound is the byte size space eviction shrinks the
	// cache down to.
	LowerMemoryBound int64

	// UpperMemoryBound is the byte size that triggers space eviction.
	// Zero disables space eviction.
	UpperMemoryBound int64

	// Interval is the cadence of periodic eviction passes.
	Interval time.Duration
}

// Evictor runs the eviction strategies in a background goroutine. It
// wakes on a periodic tick and whenever a record is inserted (it
// registers itself as a cache Observer), so a write burst cannot
// outrun the timer.
type Evictor struct {
	cache      *Cache
	strategies []EvictionStrategy
	interval   time.Duration
	clk        clock.Clock
	logger     *slog.Logger

	// notify has capacity 1: one pending wake-up is enough, extra
	// insert notifications collapse into it.
	notify chan struct{}
}

// NewEvictor creates an evictor with the standard age and space
// strategies and registers it as an observer on the cache.
func NewEvictor(cache *Cache, cfg EvictorConfig, clk clock.Clock, logger *slog.Logger) *Evictor {
	evictor := &Evictor{
		cache: cache,
		strategies: []EvictionStrategy{
			NewAgeEvictionStrategy(cache, cfg.MaxRecordAge, clk, logger),
			NewSpaceEvictionStrategy(cache, cfg.LowerMemoryBound, cfg.UpperMemoryBound, logger),
		},
		interval: cfg.Interval,
		clk:      clk,
		logger:   logger,
		notify:   make(chan struct{}, 1),
	}
	cache.AddObserver(evictor)
	return evictor
}

// RecordAdded implements Observer. Non-blocking: if a wake-up is
// already pending, the notification is absorbed.
func (e *Evictor) RecordAdded() {
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// Run executes eviction passes until the context is cancelled. Runs
// in its own goroutine for the process lifetime.
func (e *Evictor) Run(ctx context.Context) {
	ticker := e.clk.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("evictor running", "interval", e.interval)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("evictor stopping")
			return
		case <-ticker.C:
		case <-e.notify:
		}

		for _, strategy := range e.strategies {
			strategy.Execute()
		}
	}
}
