// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

// Beaconkit-relay is the per-host beacon relay daemon. Local producers
// submit pre-serialized event and action records over a Unix socket
// (CBOR frames); the relay caches them per session, evicts by age and
// memory pressure, and ships size-bounded beacon chunks to the
// collector with commit/rollback retry semantics.
//
// The socket accepts four actions:
//   - add-event: append an event record to a session
//   - add-action: append a completed-action record to a session
//   - end-session: flush the session's remaining data and free it
//   - status: operational stats (cache bytes, sessions, chunks shipped)
//
// Producers keep submitting while the collector is unreachable; the
// evictor bounds memory by dropping the oldest records first.
package main
