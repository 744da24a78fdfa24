// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol implements the beacon wire protocol: serializing
// session activity into the key=value record format the collector
// ingests, parsing collector responses, and the HTTP client that
// ships beacon chunks.
//
// A Beacon serializes one session's events, actions, value reports,
// errors, and crashes into opaque record strings and hands them to
// the cache. The record format is ampersand-joined key=value pairs
// with URL-escaped values; the cache treats records as opaque
// length-bearing text.
package protocol
