// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used on the relay's local
// submit socket.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2) so the
// same logical request always produces identical bytes. Decoding
// ignores unknown fields for forward compatibility between producers
// and relays built from different revisions.
//
// Consumers import only this package, never fxamacker/cbor directly.
package codec
