// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package caching

import (
	"strings"
	"sync"
	"sync/atomic"
)

// SessionBuffer holds all cached records of one session across three
// generations:
//
//   - staged: newly written records, eligible for extraction and
//     eviction
//   - in-flight: records claimed by the current delivery round but not
//     yet returned in a chunk
//   - delivered: records already returned in a chunk this round,
//     awaiting Commit or Rollback
//
// A record belongs to exactly one generation at any time. The byte
// size tracks payload lengths across all three generations.
//
// All methods are safe for concurrent use. Producers may call
// AddRecord from any goroutine; NextChunk, Commit, and Rollback must
// be called by a single sender goroutine (never two concurrent rounds
// on one buffer) — that contract is the caller's to uphold.
type SessionBuffer struct {
	mu sync.Mutex

	stagedEvents  []Record
	stagedActions []Record

	inFlightEvents  []Record
	inFlightActions []Record

	deliveredEvents  []Record
	deliveredActions []Record

	// byteSize is the sum of payload lengths across all generations.
	byteSize int64

	// globalBytes, when set, receives every byteSize delta inside
	// this buffer's critical section so the cache-wide counter stays
	// consistent with the per-buffer counters. Cleared when the
	// buffer is detached from its cache by DeleteEntry.
	globalBytes *atomic.Int64

	// nextSequence numbers insertions so count-based eviction can
	// merge both kinds in insertion order.
	nextSequence uint64

	// roundActive is true between the NextChunk call that snapshots
	// staged data and the Commit or Rollback that ends the round.
	roundActive bool
}

// NewSessionBuffer creates an empty buffer that is not attached to a
// cache-wide byte counter. The Cache attaches the counter when it
// creates buffers internally.
func NewSessionBuffer() *SessionBuffer {
	return &SessionBuffer{}
}

// AddRecord appends a record to the staged generation of its kind, in
// call order. No capacity bound is enforced here; bounding is the
// eviction mechanism's job.
func (b *SessionBuffer) AddRecord(kind RecordKind, timestamp int64, payload string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	record := Record{
		Timestamp: timestamp,
		Payload:   payload,
		Kind:      kind,
		sequence:  b.nextSequence,
	}
	b.nextSequence++

	if kind == KindAction {
		b.stagedActions = append(b.stagedActions, record)
	} else {
		b.stagedEvents = append(b.stagedEvents, record)
	}
	b.addBytes(record.size())
}

// NextChunk returns the next chunk of the current delivery round,
// starting a new round if none is active and staged data exists.
//
// The chunk is prefix followed by delimiter+payload per record.
// Actions drain before events, each kind in insertion order. maxSize
// is a soft cap: at least one record is always appended when data is
// available, and appending stops once the chunk length reaches
// maxSize, so a chunk can overshoot by at most one record.
//
// Records written while a round is active land in staged and wait for
// the next round. Returns the empty string when the round's in-flight
// data is exhausted (or no data exists at all) — the signal that the
// sender should finish the round.
func (b *SessionBuffer) NextChunk(prefix string, maxSize int, delimiter string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.roundActive {
		if len(b.stagedEvents) == 0 && len(b.stagedActions) == 0 {
			return ""
		}
		// Snapshot: the round claims everything staged so far.
		b.inFlightActions = b.stagedActions
		b.inFlightEvents = b.stagedEvents
		b.stagedActions = nil
		b.stagedEvents = nil
		b.roundActive = true
	}

	if len(b.inFlightActions) == 0 && len(b.inFlightEvents) == 0 {
		return ""
	}

	var chunk strings.Builder
	chunk.WriteString(prefix)

	for len(b.inFlightActions) > 0 {
		if !b.appendRecord(&chunk, &b.inFlightActions, &b.deliveredActions, delimiter, maxSize) {
			return chunk.String()
		}
	}
	for len(b.inFlightEvents) > 0 {
		if !b.appendRecord(&chunk, &b.inFlightEvents, &b.deliveredEvents, delimiter, maxSize) {
			return chunk.String()
		}
	}
	return chunk.String()
}

// appendRecord moves the head of from into to, appending it to the
// chunk. Returns false once the chunk has reached maxSize and the
// caller should stop. Caller must hold mu.
func (b *SessionBuffer) appendRecord(chunk *strings.Builder, from, to *[]Record, delimiter string, maxSize int) bool {
	record := (*from)[0]
	(*from)[0] = Record{}
	*from = (*from)[1:]
	*to = append(*to, record)

	chunk.WriteString(delimiter)
	chunk.WriteString(record.Payload)
	return chunk.Len() < maxSize
}

// Commit ends the delivery round after successful transmission. All
// delivered records are discarded permanently; records still in
// flight (a round committed chunk-by-chunk) return to the front of
// staged for the next round.
//
// Panics if no round is active: committing outside a round means the
// single-sender contract was violated.
func (b *SessionBuffer) Commit() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.roundActive {
		panic("caching: Commit called with no active delivery round")
	}

	var freed int64
	for _, record := range b.deliveredActions {
		freed += record.size()
	}
	for _, record := range b.deliveredEvents {
		freed += record.size()
	}
	b.deliveredActions = nil
	b.deliveredEvents = nil
	b.addBytes(-freed)

	b.requeueInFlight()
	b.roundActive = false
}

// Rollback ends the delivery round after failed transmission. Every
// delivered and in-flight record returns to the front of staged in
// its original relative order, eligible again for extraction and
// eviction. Byte accounting is unchanged — nothing was lost.
//
// Panics if no round is active.
func (b *SessionBuffer) Rollback() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.roundActive {
		panic("caching: Rollback called with no active delivery round")
	}

	b.stagedActions = prepend(b.deliveredActions, b.inFlightActions, b.stagedActions)
	b.stagedEvents = prepend(b.deliveredEvents, b.inFlightEvents, b.stagedEvents)
	b.deliveredActions = nil
	b.deliveredEvents = nil
	b.inFlightActions = nil
	b.inFlightEvents = nil
	b.roundActive = false
}

// requeueInFlight returns unchunked in-flight records to the front of
// staged. Caller must hold mu.
func (b *SessionBuffer) requeueInFlight() {
	b.stagedActions = prepend(nil, b.inFlightActions, b.stagedActions)
	b.stagedEvents = prepend(nil, b.inFlightEvents, b.stagedEvents)
	b.inFlightActions = nil
	b.inFlightEvents = nil
}

// prepend builds delivered + inFlight + staged in that order, which
// restores original insertion order: delivered records were dequeued
// before the remaining in-flight ones, and staged records arrived
// after the round snapshot.
func prepend(delivered, inFlight, staged []Record) []Record {
	if len(delivered) == 0 && len(inFlight) == 0 {
		return staged
	}
	restored := make([]Record, 0, len(delivered)+len(inFlight)+len(staged))
	restored = append(restored, delivered...)
	restored = append(restored, inFlight...)
	restored = append(restored, staged...)
	return restored
}

// EvictByAge removes every staged record with a timestamp strictly
// below minTimestamp and returns the number removed. In-flight and
// delivered records are never evicted — they are already part of a
// transmission attempt.
func (b *SessionBuffer) EvictByAge(minTimestamp int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int
	var freed int64

	filter := func(records []Record) []Record {
		kept := records[:0]
		for _, record := range records {
			if record.Timestamp < minTimestamp {
				removed++
				freed += record.size()
				continue
			}
			kept = append(kept, record)
		}
		// Zero the tail so evicted payloads are collectable.
		for i := len(kept); i < len(records); i++ {
			records[i] = Record{}
		}
		return kept
	}

	b.stagedActions = filter(b.stagedActions)
	b.stagedEvents = filter(b.stagedEvents)
	b.addBytes(-freed)
	return removed
}

// EvictByCount removes up to n of the oldest staged records, merging
// both kinds in insertion order with actions winning ties, and
// returns the number actually removed.
func (b *SessionBuffer) EvictByCount(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int
	var freed int64

	for removed < n {
		hasAction := len(b.stagedActions) > 0
		hasEvent := len(b.stagedEvents) > 0
		if !hasAction && !hasEvent {
			break
		}

		takeAction := hasAction &&
			(!hasEvent || b.stagedActions[0].sequence <= b.stagedEvents[0].sequence)

		if takeAction {
			freed += b.stagedActions[0].size()
			b.stagedActions[0] = Record{}
			b.stagedActions = b.stagedActions[1:]
		} else {
			freed += b.stagedEvents[0].size()
			b.stagedEvents[0] = Record{}
			b.stagedEvents = b.stagedEvents[1:]
		}
		removed++
	}

	b.addBytes(-freed)
	return removed
}

// IsEmpty reports whether all three generations hold no records.
func (b *SessionBuffer) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stagedEvents) == 0 && len(b.stagedActions) == 0 &&
		len(b.inFlightEvents) == 0 && len(b.inFlightActions) == 0 &&
		len(b.deliveredEvents) == 0 && len(b.deliveredActions) == 0
}

// NumBytes returns the payload byte total across all generations.
func (b *SessionBuffer) NumBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byteSize
}

// NumRecords returns the record count across all generations.
func (b *SessionBuffer) NumRecords() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stagedEvents) + len(b.stagedActions) +
		len(b.inFlightEvents) + len(b.inFlightActions) +
		len(b.deliveredEvents) + len(b.deliveredActions)
}

// addBytes applies a byte delta to this buffer and, when attached, to
// the cache-wide counter. Caller must hold mu.
func (b *SessionBuffer) addBytes(delta int64) {
	b.byteSize += delta
	if b.globalBytes != nil {
		b.globalBytes.Add(delta)
	}
}

// attachGlobal connects the buffer to the cache-wide byte counter.
// Called by the Cache when the buffer is created; the buffer must be
// empty.
func (b *SessionBuffer) attachGlobal(counter *atomic.Int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.globalBytes = counter
}

// detachGlobal removes this buffer's contribution from the cache-wide
// counter and disconnects it. Called by DeleteEntry; a sender still
// holding the buffer can finish its round without corrupting the
// cache total.
func (b *SessionBuffer) detachGlobal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.globalBytes != nil {
		b.globalBytes.Add(-b.byteSize)
		b.globalBytes = nil
	}
}
