// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"strconv"
	"strings"
)

// StatusResponse is the collector's answer to a beacon POST. It
// carries capture configuration the agent applies to subsequent
// sessions.
type StatusResponse struct {
	// ResponseCode is the HTTP status the collector answered with.
	ResponseCode int

	// Capture reports whether the collector wants data at all. When
	// false, the agent should stop sending and clear its cache.
	Capture bool

	// SendInterval is the collector-suggested flush cadence in
	// milliseconds. Zero when the collector did not send one.
	SendInterval int64

	// ServerID is the cluster node subsequent requests should target.
	// Zero when unchanged.
	ServerID int

	// MaxBeaconSize is the collector's chunk size limit in bytes.
	// Zero when unchanged.
	MaxBeaconSize int
}

// OK reports whether the response code indicates success.
func (r *StatusResponse) OK() bool {
	return r.ResponseCode >= 200 && r.ResponseCode < 400
}

// ParseStatusResponse parses a key=value&… status body. Unknown keys
// are ignored; malformed pairs are skipped. Capture defaults to true
// when the collector omits it.
func ParseStatusResponse(body string, responseCode int) *StatusResponse {
	response := &StatusResponse{
		ResponseCode: responseCode,
		Capture:      true,
	}

	forEachPair(body, func(key, value string) {
		switch key {
		case responseKeyCapture:
			response.Capture = value == "1"
		case responseKeySendInterval:
			// The wire value is seconds; the agent works in
			// milliseconds throughout.
			if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
				response.SendInterval = seconds * 1000
			}
		case responseKeyServerID:
			if id, err := strconv.Atoi(value); err == nil {
				response.ServerID = id
			}
		case responseKeyMaxBeaconSize:
			// The wire value is kilobytes.
			if kb, err := strconv.Atoi(value); err == nil {
				response.MaxBeaconSize = kb * 1024
			}
		}
	})

	return response
}

// TimeSyncResponse is the collector's answer to a time-sync request:
// the instants it received the request and sent the response, used to
// estimate clock offset.
type TimeSyncResponse struct {
	// RequestReceiveTime is when the collector received the request,
	// epoch milliseconds. −1 when the response did not carry it.
	RequestReceiveTime int64

	// ResponseSendTime is when the collector sent the response,
	// epoch milliseconds. −1 when the response did not carry it.
	ResponseSendTime int64
}

// Valid reports whether both timestamps were present and ordered.
func (r *TimeSyncResponse) Valid() bool {
	return r.RequestReceiveTime >= 0 && r.ResponseSendTime >= r.RequestReceiveTime
}

// ParseTimeSyncResponse parses a key=value&… timesync body. Missing
// timestamps stay at −1.
func ParseTimeSyncResponse(body string) *TimeSyncResponse {
	response := &TimeSyncResponse{
		RequestReceiveTime: -1,
		ResponseSendTime:   -1,
	}

	forEachPair(body, func(key, value string) {
		switch key {
		case responseKeyRequestReceiveTime:
			if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
				response.RequestReceiveTime = parsed
			}
		case responseKeyResponseSendTime:
			if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
				response.ResponseSendTime = parsed
			}
		}
	})

	return response
}

// forEachPair splits an ampersand-joined key=value body and invokes
// fn for every well-formed, non-empty pair.
func forEachPair(body string, fn func(key, value string)) {
	for _, part := range strings.Split(body, "&") {
		key, value, found := strings.Cut(part, "=")
		if !found || key == "" || value == "" {
			continue
		}
		fn(key, value)
	}
}
