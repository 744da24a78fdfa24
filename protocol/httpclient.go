// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/beaconkit/beaconkit/lib/version"
)

// CollectorClient ships beacon chunks to the collector over HTTP.
// Request bodies are gzip-compressed; responses are key=value&… text.
type CollectorClient struct {
	baseURL       string
	applicationID string
	serverID      int
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewCollectorClient creates a client for the collector at baseURL
// (the beacon endpoint, e.g. https://collector.example.com/mbeacon).
func NewCollectorClient(baseURL, applicationID string, serverID int, timeout time.Duration, logger *slog.Logger) *CollectorClient {
	return &CollectorClient{
		baseURL:       baseURL,
		applicationID: applicationID,
		serverID:      serverID,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// SendBeacon POSTs one beacon chunk and returns the parsed status
// response. The chunk text is gzip-compressed on the wire.
func (c *CollectorClient) SendBeacon(ctx context.Context, chunk string) (*StatusResponse, error) {
	requestURL, err := c.buildURL(requestTypeBeacon)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	compressor := gzip.NewWriter(&body)
	if _, err := compressor.Write([]byte(chunk)); err != nil {
		return nil, fmt.Errorf("compressing beacon: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return nil, fmt.Errorf("compressing beacon: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, &body)
	if err != nil {
		return nil, fmt.Errorf("building beacon request: %w", err)
	}
	request.Header.Set("Content-Type", "text/plain; charset=utf-8")
	request.Header.Set("Content-Encoding", "gzip")

	responseBody, responseCode, err := c.do(request)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("beacon sent",
		"chunk_bytes", len(chunk),
		"compressed_bytes", body.Len(),
		"response_code", responseCode,
	)
	return ParseStatusResponse(responseBody, responseCode), nil
}

// SendTimeSync performs a time-synchronization request and returns
// the collector's receive/send timestamps.
func (c *CollectorClient) SendTimeSync(ctx context.Context) (*TimeSyncResponse, error) {
	requestURL, err := c.buildURL(requestTypeTimeSync)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building timesync request: %w", err)
	}

	responseBody, responseCode, err := c.do(request)
	if err != nil {
		return nil, err
	}
	if responseCode != http.StatusOK {
		return nil, fmt.Errorf("timesync request failed with status %d", responseCode)
	}
	return ParseTimeSyncResponse(responseBody), nil
}

// buildURL assembles the collector URL with the standard identity
// query parameters.
func (c *CollectorClient) buildURL(requestType string) (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid collector URL %q: %w", c.baseURL, err)
	}

	query := parsed.Query()
	query.Set(queryKeyType, requestType)
	query.Set(queryKeyServerID, fmt.Sprintf("%d", c.serverID))
	query.Set(queryKeyApplication, c.applicationID)
	query.Set(queryKeyVersion, version.Info())
	query.Set(queryKeyPlatformType, fmt.Sprintf("%d", PlatformTypeServer))
	query.Set(queryKeyAgentTechType, AgentTechnologyType)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// do executes the request and reads the full response body.
func (c *CollectorClient) do(request *http.Request) (string, int, error) {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", 0, fmt.Errorf("collector request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", 0, fmt.Errorf("reading collector response: %w", err)
	}
	return string(body), response.StatusCode, nil
}
