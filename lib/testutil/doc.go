// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel helpers for concurrency tests.
//
// The helpers wrap select-with-timeout so individual tests never hang
// forever on a channel that a buggy implementation fails to signal.
package testutil
