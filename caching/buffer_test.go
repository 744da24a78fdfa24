// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package caching

import (
	"strings"
	"testing"
)

func TestAddRecordAccountsBytes(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindEvent, 1, "abcde")
	buffer.AddRecord(KindAction, 2, "xyz")

	if got := buffer.NumBytes(); got != 8 {
		t.Fatalf("NumBytes: got %d, want 8", got)
	}
	if got := buffer.NumRecords(); got != 2 {
		t.Fatalf("NumRecords: got %d, want 2", got)
	}
}

func TestNextChunkActionsBeforeEvents(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindEvent, 1, "a")
	buffer.AddRecord(KindAction, 2, "b")
	buffer.AddRecord(KindEvent, 3, "c")

	chunk := buffer.NextChunk("7|", 1000, "&")
	if chunk != "7|&b&a&c" {
		t.Fatalf("NextChunk: got %q, want %q", chunk, "7|&b&a&c")
	}

	buffer.Commit()
	if !buffer.IsEmpty() {
		t.Fatal("buffer not empty after commit")
	}
	if got := buffer.NumBytes(); got != 0 {
		t.Fatalf("NumBytes after commit: got %d, want 0", got)
	}
}

func TestNextChunkEmptyBufferReturnsEmptyString(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	if chunk := buffer.NextChunk("prefix", 100, "&"); chunk != "" {
		t.Fatalf("NextChunk on empty buffer: got %q, want empty", chunk)
	}
}

func TestNextChunkSoftSizeCap(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	first := strings.Repeat("x", 25)
	second := strings.Repeat("y", 25)
	buffer.AddRecord(KindEvent, 1, first)
	buffer.AddRecord(KindEvent, 2, second)

	// The cap forces termination after the first appended record once
	// the chunk length reaches 10.
	chunk := buffer.NextChunk("p", 10, "&")
	if chunk != "p&"+first {
		t.Fatalf("first chunk: got %q, want prefix plus first record only", chunk)
	}

	// Same round, no commit in between: the second call drains the
	// remaining record.
	chunk = buffer.NextChunk("p", 10, "&")
	if chunk != "p&"+second {
		t.Fatalf("second chunk: got %q, want prefix plus second record", chunk)
	}

	// Round exhausted.
	if chunk := buffer.NextChunk("p", 10, "&"); chunk != "" {
		t.Fatalf("exhausted round: got %q, want empty", chunk)
	}

	buffer.Commit()
	if !buffer.IsEmpty() {
		t.Fatal("buffer not empty after commit")
	}
}

func TestNextChunkOversizedRecordStillEmitted(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	payload := strings.Repeat("z", 500)
	buffer.AddRecord(KindAction, 1, payload)

	// A single record larger than maxSize overshoots the cap rather
	// than producing an empty chunk.
	chunk := buffer.NextChunk("p", 10, "&")
	if chunk != "p&"+payload {
		t.Fatalf("oversized record: got %d bytes, want full record", len(chunk))
	}
}

func TestNextChunkNoOverlapAcrossCalls(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	payloads := []string{"aaaa", "bbbb", "cccc", "dddd"}
	for i, payload := range payloads {
		buffer.AddRecord(KindEvent, int64(i), payload)
	}

	seen := map[string]int{}
	for {
		chunk := buffer.NextChunk("", 5, "&")
		if chunk == "" {
			break
		}
		for _, part := range strings.Split(chunk, "&") {
			if part != "" {
				seen[part]++
			}
		}
	}

	for _, payload := range payloads {
		if seen[payload] != 1 {
			t.Errorf("payload %q emitted %d times, want exactly once", payload, seen[payload])
		}
	}
}

func TestWritesDuringRoundLandInNextRound(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindEvent, 1, "old")
	if chunk := buffer.NextChunk("", 1000, "&"); chunk != "&old" {
		t.Fatalf("first round: got %q", chunk)
	}

	// Arrives mid-round: must not appear in this round.
	buffer.AddRecord(KindEvent, 2, "new")
	if chunk := buffer.NextChunk("", 1000, "&"); chunk != "" {
		t.Fatalf("mid-round chunk: got %q, want empty", chunk)
	}

	buffer.Commit()

	if chunk := buffer.NextChunk("", 1000, "&"); chunk != "&new" {
		t.Fatalf("second round: got %q, want %q", chunk, "&new")
	}
}

func TestCommitRequeuesUnchunkedInFlight(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindEvent, 1, strings.Repeat("a", 20))
	buffer.AddRecord(KindEvent, 2, strings.Repeat("b", 20))

	// One chunk (only the first record fits), then commit: the first
	// record is dropped, the second returns to staged for a fresh
	// round.
	if chunk := buffer.NextChunk("", 10, "&"); !strings.Contains(chunk, "aaa") {
		t.Fatalf("first chunk: got %q", chunk)
	}
	buffer.Commit()

	if got := buffer.NumBytes(); got != 20 {
		t.Fatalf("NumBytes after partial commit: got %d, want 20", got)
	}

	chunk := buffer.NextChunk("", 1000, "&")
	if chunk != "&"+strings.Repeat("b", 20) {
		t.Fatalf("fresh round: got %q", chunk)
	}
}

func TestRollbackRestoresRecordSet(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindAction, 1, "a1")
	buffer.AddRecord(KindAction, 2, "a2")
	buffer.AddRecord(KindEvent, 3, "e1")
	buffer.AddRecord(KindEvent, 4, "e2")

	// Drain two chunks, then roll back.
	buffer.NextChunk("", 3, "&")
	buffer.NextChunk("", 3, "&")
	buffer.Rollback()

	if got := buffer.NumBytes(); got != 8 {
		t.Fatalf("NumBytes after rollback: got %d, want 8", got)
	}

	// A fresh round re-emits everything in the original order.
	chunk := buffer.NextChunk("", 1000, "&")
	if chunk != "&a1&a2&e1&e2" {
		t.Fatalf("after rollback: got %q, want %q", chunk, "&a1&a2&e1&e2")
	}
}

func TestRollbackIdempotentAcrossChunkCounts(t *testing.T) {
	t.Parallel()

	// Regardless of how many chunks were drained before the rollback,
	// the staged content afterwards is identical.
	for drained := 0; drained <= 3; drained++ {
		buffer := NewSessionBuffer()
		buffer.AddRecord(KindAction, 1, "aa")
		buffer.AddRecord(KindEvent, 2, "bb")
		buffer.AddRecord(KindEvent, 3, "cc")

		buffer.NextChunk("", 1, "&") // start the round
		for i := 0; i < drained; i++ {
			buffer.NextChunk("", 1, "&")
		}
		buffer.Rollback()

		chunk := buffer.NextChunk("", 1000, "&")
		if chunk != "&aa&bb&cc" {
			t.Fatalf("drained=%d: got %q, want %q", drained, chunk, "&aa&bb&cc")
		}
	}
}

func TestCommitDoesNotReemitCommittedRecords(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindEvent, 1, "first")
	buffer.NextChunk("", 1000, "&")
	buffer.Commit()

	buffer.AddRecord(KindEvent, 2, "second")
	chunk := buffer.NextChunk("", 1000, "&")
	if strings.Contains(chunk, "first") {
		t.Fatalf("committed record re-emitted: %q", chunk)
	}
}

func TestEvictByAgeStagedOnly(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindEvent, 100, "old-event")
	buffer.AddRecord(KindAction, 150, "old-action")

	// Claim everything for a round: eviction must not touch it.
	buffer.NextChunk("", 1, "&")
	if removed := buffer.EvictByAge(1000); removed != 0 {
		t.Fatalf("evicted %d in-flight records, want 0", removed)
	}

	// Rolled back, the data is staged again and evictable.
	buffer.Rollback()
	if removed := buffer.EvictByAge(1000); removed != 2 {
		t.Fatalf("evicted %d after rollback, want 2", removed)
	}
	if got := buffer.NumBytes(); got != 0 {
		t.Fatalf("NumBytes after eviction: got %d, want 0", got)
	}
}

func TestEvictByAgeStrictThreshold(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindEvent, 99, "older")
	buffer.AddRecord(KindEvent, 100, "boundary")
	buffer.AddRecord(KindEvent, 101, "newer")

	// Strictly less than: the boundary record stays.
	if removed := buffer.EvictByAge(100); removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}

	chunk := buffer.NextChunk("", 1000, "&")
	if chunk != "&boundary&newer" {
		t.Fatalf("remaining: got %q", chunk)
	}
}

func TestEvictByCountMergedInsertionOrder(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindEvent, 1, "e1")
	buffer.AddRecord(KindAction, 2, "a1")
	buffer.AddRecord(KindEvent, 3, "e2")
	buffer.AddRecord(KindAction, 4, "a2")

	// Oldest two by insertion order are e1 then a1.
	if removed := buffer.EvictByCount(2); removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}

	chunk := buffer.NextChunk("", 1000, "&")
	if chunk != "&a2&e2" {
		t.Fatalf("remaining: got %q, want %q", chunk, "&a2&e2")
	}
}

func TestEvictByCountReturnsActualCount(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindEvent, 1, "only")

	if removed := buffer.EvictByCount(10); removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}
	if removed := buffer.EvictByCount(10); removed != 0 {
		t.Fatalf("removed %d from empty buffer, want 0", removed)
	}
}

func TestByteAccountingStableAcrossGenerations(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	buffer.AddRecord(KindEvent, 1, "12345")
	buffer.AddRecord(KindAction, 2, "1234567890")

	// Moving records between generations never changes the total.
	buffer.NextChunk("", 1, "&")
	if got := buffer.NumBytes(); got != 15 {
		t.Fatalf("NumBytes mid-round: got %d, want 15", got)
	}
	buffer.Rollback()
	if got := buffer.NumBytes(); got != 15 {
		t.Fatalf("NumBytes after rollback: got %d, want 15", got)
	}
}

func TestCommitWithoutRoundPanics(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for Commit without an active round")
		}
	}()
	buffer.Commit()
}

func TestRollbackWithoutRoundPanics(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()
	buffer.AddRecord(KindEvent, 1, "data")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for Rollback without an active round")
		}
	}()
	buffer.Rollback()
}

func TestDoubleCommitPanics(t *testing.T) {
	t.Parallel()
	buffer := NewSessionBuffer()
	buffer.AddRecord(KindEvent, 1, "data")
	buffer.NextChunk("", 1000, "&")
	buffer.Commit()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for second Commit")
		}
	}()
	buffer.Commit()
}
