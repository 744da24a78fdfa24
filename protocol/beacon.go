// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/beaconkit/beaconkit/caching"
	"github.com/beaconkit/beaconkit/lib/clock"
	"github.com/beaconkit/beaconkit/lib/version"
)

// BeaconConfig carries the identity stamped into a session's beacon
// data.
type BeaconConfig struct {
	ApplicationID      string
	ApplicationName    string
	ApplicationVersion string
	DeviceID           int64
	ClientIP           string
	OperatingSystem    string
	Manufacturer       string
	ModelID            string
	ServerID           int
}

// Beacon serializes one session's activity into beacon records and
// writes them into the cache. All report methods are safe for
// concurrent use; the cache handles synchronization and the beacon's
// own counters are atomic.
type Beacon struct {
	cache  *caching.Cache
	config BeaconConfig
	clk    clock.Clock

	sessionNumber int32
	sessionStart  int64

	sequenceNumber atomic.Int32
	lastID         atomic.Int32

	// immutableData is the session identity prefix computed once at
	// construction; the mutable part (transmission time) is appended
	// per send.
	immutableData string
}

// NewBeacon creates a beacon for the given session number. The
// session start time is taken from the clock at construction.
func NewBeacon(cache *caching.Cache, config BeaconConfig, sessionNumber int32, clk clock.Clock) *Beacon {
	b := &Beacon{
		cache:         cache,
		config:        config,
		clk:           clk,
		sessionNumber: sessionNumber,
		sessionStart:  clk.Now().UnixMilli(),
	}
	b.immutableData = b.buildImmutableData()
	return b
}

// SessionNumber returns the session this beacon serializes for.
func (b *Beacon) SessionNumber() int32 { return b.sessionNumber }

// CurrentTimestamp returns the current epoch-millisecond timestamp.
func (b *Beacon) CurrentTimestamp() int64 {
	return b.clk.Now().UnixMilli()
}

// CreateSequenceNumber returns the next per-session sequence number,
// starting at 1.
func (b *Beacon) CreateSequenceNumber() int32 {
	return b.sequenceNumber.Add(1)
}

// CreateID returns the next per-session action identifier, starting
// at 1.
func (b *Beacon) CreateID() int32 {
	return b.lastID.Add(1)
}

// CreateTag builds the web-request correlation tag a traced outgoing
// request carries so the collector can stitch it to this session.
func (b *Beacon) CreateTag(parentActionID, sequenceNumber int32) string {
	return fmt.Sprintf("MT_%d_%d_%d_%d_%s_%d_%d",
		ProtocolVersion,
		b.config.ServerID,
		b.config.DeviceID,
		b.sessionNumber,
		b.config.ApplicationID,
		parentActionID,
		sequenceNumber,
	)
}

// StartSession writes the session-start record.
func (b *Beacon) StartSession() {
	var data strings.Builder
	b.buildBasicEventData(&data, EventTypeSessionStart, "")
	addKeyValueInt(&data, keyParentActionID, 0)
	addKeyValueInt32(&data, keyStartSequence, b.CreateSequenceNumber())
	addKeyValueInt(&data, keyStartTime, 0)
	b.addEventData(b.sessionStart, data.String())
}

// EndSession writes the session-end record.
func (b *Beacon) EndSession() {
	timestamp := b.CurrentTimestamp()
	var data strings.Builder
	b.buildBasicEventData(&data, EventTypeSessionEnd, "")
	addKeyValueInt(&data, keyParentActionID, 0)
	addKeyValueInt32(&data, keyStartSequence, b.CreateSequenceNumber())
	addKeyValueInt64(&data, keyStartTime, b.timeSinceSessionStart(timestamp))
	b.addEventData(timestamp, data.String())
}

// AddAction writes a completed action record: identifier, parent,
// start/end sequence numbers, and start/end times.
func (b *Beacon) AddAction(name string, actionID, parentActionID int32, startTime, endTime int64, startSequence, endSequence int32) {
	var data strings.Builder
	b.buildBasicEventData(&data, EventTypeAction, name)
	addKeyValueInt32(&data, keyActionID, actionID)
	addKeyValueInt32(&data, keyParentActionID, parentActionID)
	addKeyValueInt32(&data, keyStartSequence, startSequence)
	addKeyValueInt64(&data, keyStartTime, b.timeSinceSessionStart(startTime))
	addKeyValueInt32(&data, keyEndSequence, endSequence)
	addKeyValueInt64(&data, keyEndTime, endTime-startTime)
	b.cache.AddActionData(b.sessionNumber, startTime, data.String())
}

// ReportEvent writes a named event record under the given action.
func (b *Beacon) ReportEvent(parentActionID int32, eventName string) {
	timestamp, data := b.buildEvent(EventTypeNamedEvent, eventName, parentActionID)
	b.addEventData(timestamp, data)
}

// ReportValueString writes a string value report under the given
// action.
func (b *Beacon) ReportValueString(parentActionID int32, valueName, value string) {
	timestamp, data := b.buildValueEvent(EventTypeValueString, valueName, parentActionID, truncate(value))
	b.addEventData(timestamp, data)
}

// ReportValueInt writes an integer value report under the given
// action.
func (b *Beacon) ReportValueInt(parentActionID int32, valueName string, value int64) {
	timestamp, data := b.buildValueEvent(EventTypeValueInt, valueName, parentActionID, strconv.FormatInt(value, 10))
	b.addEventData(timestamp, data)
}

// ReportValueDouble writes a floating-point value report under the
// given action.
func (b *Beacon) ReportValueDouble(parentActionID int32, valueName string, value float64) {
	timestamp, data := b.buildValueEvent(EventTypeValueDouble, valueName, parentActionID, strconv.FormatFloat(value, 'f', -1, 64))
	b.addEventData(timestamp, data)
}

// ReportError writes a handled-error record under the given action.
func (b *Beacon) ReportError(parentActionID int32, errorName string, errorCode int32, reason string) {
	timestamp := b.CurrentTimestamp()
	var data strings.Builder
	b.buildBasicEventData(&data, EventTypeError, errorName)
	addKeyValueInt32(&data, keyParentActionID, parentActionID)
	addKeyValueInt32(&data, keyStartSequence, b.CreateSequenceNumber())
	addKeyValueInt64(&data, keyStartTime, b.timeSinceSessionStart(timestamp))
	addKeyValueInt32(&data, keyErrorCode, errorCode)
	addKeyValueString(&data, keyReason, reason)
	b.addEventData(timestamp, data.String())
}

// ReportCrash writes an unhandled-crash record. Crashes are
// session-level: they have no parent action.
func (b *Beacon) ReportCrash(errorName, reason, stacktrace string) {
	timestamp := b.CurrentTimestamp()
	var data strings.Builder
	b.buildBasicEventData(&data, EventTypeCrash, errorName)
	addKeyValueInt(&data, keyParentActionID, 0)
	addKeyValueInt32(&data, keyStartSequence, b.CreateSequenceNumber())
	addKeyValueInt64(&data, keyStartTime, b.timeSinceSessionStart(timestamp))
	addKeyValueString(&data, keyReason, reason)
	addKeyValueString(&data, keyStacktrace, stacktrace)
	b.addEventData(timestamp, data.String())
}

// IdentifyUser writes a user identification record.
func (b *Beacon) IdentifyUser(userTag string) {
	timestamp, data := b.buildEvent(EventTypeIdentifyUser, userTag, 0)
	b.addEventData(timestamp, data)
}

// IsEmpty reports whether the cache holds no data for this session.
func (b *Beacon) IsEmpty() bool {
	return b.cache.IsEmpty(b.sessionNumber)
}

// ClearData discards all cached data for this session.
func (b *Beacon) ClearData() {
	b.cache.DeleteEntry(b.sessionNumber)
}

// ChunkPrefix returns the session identity prefix every transmitted
// chunk starts with: the immutable session data plus the current
// transmission timestamp and multiplicity.
func (b *Beacon) ChunkPrefix() string {
	var prefix strings.Builder
	prefix.WriteString(b.immutableData)
	addKeyValueInt64(&prefix, keyTransmission, b.CurrentTimestamp())
	addKeyValueInt(&prefix, keyMultiplicity, 1)
	return prefix.String()
}

// buildImmutableData serializes the identity fields that never change
// for the session's lifetime.
func (b *Beacon) buildImmutableData() string {
	var data strings.Builder

	appendKeyValueInt(&data, keyProtocolVersion, ProtocolVersion)
	addKeyValueString(&data, keyAgentVersion, version.Info())
	addKeyValueString(&data, keyApplicationID, b.config.ApplicationID)
	addKeyValueString(&data, keyApplicationName, b.config.ApplicationName)
	if b.config.ApplicationVersion != "" {
		addKeyValueString(&data, keyAppVersion, b.config.ApplicationVersion)
	}
	addKeyValueInt(&data, keyPlatformType, PlatformTypeServer)
	addKeyValueString(&data, keyTechnologyType, AgentTechnologyType)
	addKeyValueInt64(&data, keyDeviceID, b.config.DeviceID)
	addKeyValueInt32(&data, keySessionNumber, b.sessionNumber)
	if b.config.ClientIP != "" {
		addKeyValueString(&data, keyClientIP, b.config.ClientIP)
	}
	if b.config.OperatingSystem != "" {
		addKeyValueString(&data, keyOperatingSystem, b.config.OperatingSystem)
	}
	if b.config.Manufacturer != "" {
		addKeyValueString(&data, keyManufacturer, b.config.Manufacturer)
	}
	if b.config.ModelID != "" {
		addKeyValueString(&data, keyModelID, b.config.ModelID)
	}
	addKeyValueInt64(&data, keySessionStart, b.sessionStart)

	return data.String()
}

// buildEvent serializes a basic event with parent, sequence number,
// and relative timestamp. Returns the capture timestamp and the
// record text.
func (b *Beacon) buildEvent(eventType EventType, name string, parentActionID int32) (int64, string) {
	timestamp := b.CurrentTimestamp()
	var data strings.Builder
	b.buildBasicEventData(&data, eventType, name)
	addKeyValueInt32(&data, keyParentActionID, parentActionID)
	addKeyValueInt32(&data, keyStartSequence, b.CreateSequenceNumber())
	addKeyValueInt64(&data, keyStartTime, b.timeSinceSessionStart(timestamp))
	return timestamp, data.String()
}

// buildValueEvent serializes a value report: a basic event plus the
// serialized value.
func (b *Beacon) buildValueEvent(eventType EventType, name string, parentActionID int32, value string) (int64, string) {
	timestamp, data := b.buildEvent(eventType, name, parentActionID)
	var full strings.Builder
	full.WriteString(data)
	addKeyValueString(&full, keyValue, value)
	return timestamp, full.String()
}

// buildBasicEventData writes the event type and optional truncated
// name.
func (b *Beacon) buildBasicEventData(data *strings.Builder, eventType EventType, name string) {
	appendKeyValueInt(data, keyEventType, int(eventType))
	if name != "" {
		addKeyValueString(data, keyName, truncate(name))
	}
}

// addEventData routes a serialized record into the cache's event
// stream.
func (b *Beacon) addEventData(timestamp int64, data string) {
	b.cache.AddEventData(b.sessionNumber, timestamp, data)
}

// timeSinceSessionStart converts an absolute timestamp to one
// relative to session start.
func (b *Beacon) timeSinceSessionStart(timestamp int64) int64 {
	return timestamp - b.sessionStart
}

// truncate caps names at the protocol's maximum length.
func truncate(name string) string {
	if len(name) > maxNameLength {
		return name[:maxNameLength]
	}
	return name
}

// appendKeyValueInt writes "key=value" without a leading delimiter,
// used for the first pair of a record.
func appendKeyValueInt(data *strings.Builder, key string, value int) {
	data.WriteString(key)
	data.WriteByte('=')
	data.WriteString(strconv.Itoa(value))
}

// addKeyValueString writes "&key=<url-escaped value>".
func addKeyValueString(data *strings.Builder, key, value string) {
	data.WriteByte('&')
	data.WriteString(key)
	data.WriteByte('=')
	data.WriteString(url.QueryEscape(value))
}

// addKeyValueInt writes "&key=value".
func addKeyValueInt(data *strings.Builder, key string, value int) {
	data.WriteByte('&')
	data.WriteString(key)
	data.WriteByte('=')
	data.WriteString(strconv.Itoa(value))
}

// addKeyValueInt32 writes "&key=value".
func addKeyValueInt32(data *strings.Builder, key string, value int32) {
	addKeyValueInt64(data, key, int64(value))
}

// addKeyValueInt64 writes "&key=value".
func addKeyValueInt64(data *strings.Builder, key string, value int64) {
	data.WriteByte('&')
	data.WriteString(key)
	data.WriteByte('=')
	data.WriteString(strconv.FormatInt(value, 10))
}
