// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package caching

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/beaconkit/beaconkit/lib/clock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAgeEvictionRemovesOldRecords(t *testing.T) {
	t.Parallel()
	cache := NewCache()
	fake := clock.Fake(time.UnixMilli(10_000))

	cache.AddEventData(1, 1_000, "old")
	cache.AddEventData(1, 9_500, "fresh")
	cache.AddActionData(2, 2_000, "also-old")

	strategy := NewAgeEvictionStrategy(cache, 5*time.Second, fake, discardLogger())
	strategy.Execute()

	// Threshold is 10000 − 5000 = 5000: the two records below it go.
	if got := cache.NumBytesInCache(); got != int64(len("fresh")) {
		t.Fatalf("NumBytesInCache: got %d, want %d", got, len("fresh"))
	}
}

func TestAgeEvictionDisabledByZeroMaxAge(t *testing.T) {
	t.Parallel()
	cache := NewCache()
	fake := clock.Fake(time.UnixMilli(10_000))

	cache.AddEventData(1, 1, "ancient")

	NewAgeEvictionStrategy(cache, 0, fake, discardLogger()).Execute()

	if cache.NumBytesInCache() == 0 {
		t.Fatal("disabled age strategy evicted records")
	}
}

func TestSpaceEvictionShrinksToLowerBound(t *testing.T) {
	t.Parallel()
	cache := NewCache()

	payload := strings.Repeat("x", 10)
	for i := 0; i < 20; i++ {
		cache.AddEventData(int32(i%2), int64(i), payload)
	}
	if got := cache.NumBytesInCache(); got != 200 {
		t.Fatalf("setup: got %d bytes, want 200", got)
	}

	NewSpaceEvictionStrategy(cache, 100, 150, discardLogger()).Execute()

	got := cache.NumBytesInCache()
	if got > 100 {
		t.Fatalf("NumBytesInCache after space eviction: got %d, want <= 100", got)
	}
	if got == 0 {
		t.Fatal("space eviction removed everything; should stop at the lower bound")
	}
}

func TestSpaceEvictionIdleBelowUpperBound(t *testing.T) {
	t.Parallel()
	cache := NewCache()

	cache.AddEventData(1, 1, strings.Repeat("x", 50))

	NewSpaceEvictionStrategy(cache, 20, 100, discardLogger()).Execute()

	if got := cache.NumBytesInCache(); got != 50 {
		t.Fatalf("eviction ran below the upper bound: %d bytes left", got)
	}
}

func TestSpaceEvictionStopsWhenNothingEvictable(t *testing.T) {
	t.Parallel()
	cache := NewCache()

	// All data is claimed by an active round, so nothing is staged
	// and every sweep removes zero records. Execute must return
	// instead of spinning.
	cache.AddEventData(1, 1, strings.Repeat("x", 200))
	cache.NextBeaconChunk(1, "", 1, "&")

	NewSpaceEvictionStrategy(cache, 50, 100, discardLogger()).Execute()

	if got := cache.NumBytesInCache(); got != 200 {
		t.Fatalf("in-flight data was evicted: %d bytes left", got)
	}
}
