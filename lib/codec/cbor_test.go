// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

// submitFrame mirrors the relay's socket request shape: cbor struct
// tags, session identity plus opaque payloads.
type submitFrame struct {
	Action    string `cbor:"action"`
	SessionID int32  `cbor:"session_id"`
	Timestamp int64  `cbor:"timestamp,omitempty"`
	Payload   string `cbor:"payload,omitempty"`
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	original := submitFrame{
		Action:    "add-event",
		SessionID: 17,
		Timestamp: 1700000000123,
		Payload:   "et=10&na=login&it=1",
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded submitFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Fatalf("round trip: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	t.Parallel()

	value := map[string]any{"zulu": 1, "alpha": 2, "mike": 3}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same value produced different encodings")
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	data, err := Marshal(map[string]any{
		"action":     "add-event",
		"session_id": 3,
		"novel":      "field from a newer producer",
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded submitFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Action != "add-event" || decoded.SessionID != 3 {
		t.Fatalf("decoded %+v, want action add-event session 3", decoded)
	}
}

func TestStreamEncoderDecoder(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)

	frames := []submitFrame{
		{Action: "add-event", SessionID: 1, Payload: "a"},
		{Action: "add-action", SessionID: 1, Payload: "b"},
	}
	for _, frame := range frames {
		if err := encoder.Encode(frame); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range frames {
		var got submitFrame
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode frame %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("frame %d: got %+v, want %+v", i, got, want)
		}
	}
}
