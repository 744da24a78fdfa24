// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock parameter instead of calling time.Now,
// time.After, time.NewTicker, or time.Sleep directly. Real() provides
// standard library behavior; Fake() provides a deterministic clock that
// advances only when Advance is called.
//
// In tests, use WaitForTimers to block until background goroutines have
// registered their timers before advancing:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	evictor := caching.NewEvictor(cache, cfg, c, logger)
//	// ... start goroutine ...
//	c.WaitForTimers(1)
//	c.Advance(time.Second)
package clock
