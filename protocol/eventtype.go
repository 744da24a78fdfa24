// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "fmt"

// EventType is the wire discriminator for serialized records. The
// numeric values are protocol constants the collector depends on.
type EventType int32

const (
	// EventTypeAction is a completed user/logical action.
	EventTypeAction EventType = 1

	// EventTypeNamedEvent is a plain named event.
	EventTypeNamedEvent EventType = 10

	// EventTypeValueString reports a string value.
	EventTypeValueString EventType = 11

	// EventTypeValueInt reports an integer value.
	EventTypeValueInt EventType = 12

	// EventTypeValueDouble reports a floating-point value.
	EventTypeValueDouble EventType = 13

	// EventTypeSessionStart marks the beginning of a session.
	EventTypeSessionStart EventType = 18

	// EventTypeSessionEnd marks the end of a session.
	EventTypeSessionEnd EventType = 19

	// EventTypeError reports a handled error.
	EventTypeError EventType = 40

	// EventTypeCrash reports an unhandled crash.
	EventTypeCrash EventType = 50

	// EventTypeIdentifyUser ties the session to a user tag.
	EventTypeIdentifyUser EventType = 60
)

// String returns the event type name for logging.
func (t EventType) String() string {
	switch t {
	case EventTypeAction:
		return "action"
	case EventTypeNamedEvent:
		return "named_event"
	case EventTypeValueString:
		return "value_string"
	case EventTypeValueInt:
		return "value_int"
	case EventTypeValueDouble:
		return "value_double"
	case EventTypeSessionStart:
		return "session_start"
	case EventTypeSessionEnd:
		return "session_end"
	case EventTypeError:
		return "error"
	case EventTypeCrash:
		return "crash"
	case EventTypeIdentifyUser:
		return "identify_user"
	default:
		return fmt.Sprintf("unknown(%d)", int32(t))
	}
}
