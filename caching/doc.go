// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

// Package caching implements the per-session beacon cache: an
// in-memory buffer of serialized event and action records, keyed by
// session identifier, that a single sender drains as size-bounded
// text chunks.
//
// Producers append records through the Cache from any goroutine. The
// sender extracts chunks one session at a time, committing a delivery
// round after the backend confirms receipt or rolling it back when
// transmission fails, so no record is lost or duplicated. An Evictor
// bounds memory with age- and size-based eviction passes.
//
// Data flow:
//
//	producers → Cache.AddEventData/AddActionData → SessionBuffer (staged)
//	sender    → NextBeaconChunk (staged → in-flight → delivered) → collector
//	            RemoveChunkedData on success / ResetChunkedData on failure
//	evictor   → EvictRecordsByAge / EvictRecordsByNumber
package caching
