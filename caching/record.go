// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package caching

import "fmt"

// RecordKind distinguishes the two record streams a session produces.
type RecordKind uint8

const (
	// KindEvent is serialized event data (named events, value
	// reports, errors, crashes).
	KindEvent RecordKind = iota

	// KindAction is serialized action data. Actions are drained
	// before events during chunk extraction because action completion
	// data is needed to correlate the events that follow it.
	KindAction
)

// String returns the kind name for logging.
func (k RecordKind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindAction:
		return "action"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Record is one serialized telemetry record. Immutable after
// insertion.
type Record struct {
	// Timestamp is the record's capture time in epoch milliseconds.
	// It is the comparison key for age-based eviction; delivery order
	// is insertion order, not timestamp order.
	Timestamp int64

	// Payload is the opaque serialized record text.
	Payload string

	// Kind tags the record as event or action data.
	Kind RecordKind

	// sequence is the buffer-local insertion counter. Eviction by
	// count merges both kinds in sequence order.
	sequence uint64
}

// size returns the payload length in bytes, the unit of all cache
// byte accounting.
func (r Record) size() int64 { return int64(len(r.Payload)) }
