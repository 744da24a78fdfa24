// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Protocol identity stamped into every beacon.
const (
	// ProtocolVersion is the beacon format version.
	ProtocolVersion = 3

	// AgentTechnologyType identifies this agent implementation to the
	// collector.
	AgentTechnologyType = "okgo"

	// PlatformTypeServer is the platform discriminator for
	// server-side agents.
	PlatformTypeServer = 1
)

// Beacon key constants. Two-letter keys keep the wire format compact;
// the collector's parser depends on these exact names.
const (
	keyProtocolVersion = "vv"
	keyAgentVersion    = "va"
	keyApplicationID   = "ap"
	keyApplicationName = "an"
	keyAppVersion      = "vn"
	keyPlatformType    = "pt"
	keyTechnologyType  = "tt"
	keyDeviceID        = "vi"
	keySessionNumber   = "sn"
	keyClientIP        = "ip"
	keyOperatingSystem = "os"
	keyManufacturer    = "mf"
	keyModelID         = "md"
	keySessionStart    = "ts"
	keyTransmission    = "tv"
	keyMultiplicity    = "mp"

	keyEventType      = "et"
	keyName           = "na"
	keyActionID       = "ca"
	keyParentActionID = "pa"
	keyStartSequence  = "s0"
	keyStartTime      = "t0"
	keyEndSequence    = "s1"
	keyEndTime        = "t1"
	keyValue          = "vl"
	keyErrorCode      = "ev"
	keyReason         = "rs"
	keyStacktrace     = "st"
)

// Query parameters for collector requests.
const (
	queryKeyType          = "type"
	queryKeyServerID      = "srvid"
	queryKeyApplication   = "app"
	queryKeyVersion       = "va"
	queryKeyPlatformType  = "pt"
	queryKeyAgentTechType = "tt"

	// requestTypeBeacon marks a mobile/agent beacon POST.
	requestTypeBeacon = "m"

	// requestTypeTimeSync marks a time-synchronization request.
	requestTypeTimeSync = "mts"
)

// Response keys. Timesync responses carry the collector's receive and
// send timestamps; status responses carry capture configuration.
const (
	responseKeyRequestReceiveTime = "t1"
	responseKeyResponseSendTime   = "t2"

	responseKeyCapture       = "cp"
	responseKeySendInterval  = "si"
	responseKeyServerID      = "id"
	responseKeyMaxBeaconSize = "bl"
	responseKeyMultiplicity  = "mp"
)

// maxNameLength is the limit names are truncated to before
// serialization.
const maxNameLength = 250

// BeaconDelimiter separates records inside one beacon chunk.
const BeaconDelimiter = "&"
