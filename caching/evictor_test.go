// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package caching

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/beaconkit/beaconkit/lib/clock"
	"github.com/beaconkit/beaconkit/lib/testutil"
)

// waitStrategy signals a channel each time it executes.
type waitStrategy struct {
	executed chan struct{}
}

func (s *waitStrategy) Execute() {
	select {
	case s.executed <- struct{}{}:
	default:
	}
}

func TestEvictorRunsOnTick(t *testing.T) {
	t.Parallel()
	cache := NewCache()
	fake := clock.Fake(time.UnixMilli(0))

	evictor := NewEvictor(cache, EvictorConfig{Interval: time.Second}, fake, discardLogger())
	strategy := &waitStrategy{executed: make(chan struct{}, 1)}
	evictor.strategies = []EvictionStrategy{strategy}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		evictor.Run(ctx)
		close(done)
	}()

	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	testutil.RequireReceive(t, strategy.executed, 5*time.Second, "waiting for tick-driven pass")

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "waiting for evictor shutdown")
}

func TestEvictorWakesOnInsert(t *testing.T) {
	t.Parallel()
	cache := NewCache()
	fake := clock.Fake(time.UnixMilli(0))

	evictor := NewEvictor(cache, EvictorConfig{Interval: time.Hour}, fake, discardLogger())
	strategy := &waitStrategy{executed: make(chan struct{}, 1)}
	evictor.strategies = []EvictionStrategy{strategy}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go evictor.Run(ctx)
	fake.WaitForTimers(1)

	// No clock advance: the insert notification alone must wake the
	// evictor long before the hourly tick.
	cache.AddEventData(1, 1, "data")
	testutil.RequireReceive(t, strategy.executed, 5*time.Second, "waiting for insert-driven pass")
}

func TestEvictorBoundsCacheUnderLoad(t *testing.T) {
	t.Parallel()
	cache := NewCache()
	fake := clock.Fake(time.UnixMilli(0))

	evictor := NewEvictor(cache, EvictorConfig{
		LowerMemoryBound: 100,
		UpperMemoryBound: 200,
		Interval:         time.Second,
	}, fake, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		evictor.Run(ctx)
		close(done)
	}()
	fake.WaitForTimers(1)

	// Push the cache well past the upper bound. Every insert wakes
	// the evictor, so the space strategy runs without any tick.
	payload := strings.Repeat("x", 50)
	for i := 0; i < 20; i++ {
		cache.AddEventData(1, int64(i), payload)
	}

	deadline := time.Now().Add(5 * time.Second)
	for cache.NumBytesInCache() > 200 {
		if time.Now().After(deadline) {
			t.Fatalf("cache never shrank: %d bytes", cache.NumBytesInCache())
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "waiting for evictor shutdown")
}
