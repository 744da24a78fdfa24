// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

// Package sender drains the beacon cache toward the collector. A
// single sender goroutine owns all chunk extraction: per session it
// extracts size-bounded chunks, transmits them, and commits on
// success or rolls back with exponential backoff on failure, so a
// failed transmission never loses records.
package sender
