// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beaconkit.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const minimalConfig = `
collector:
  url: https://collector.example.com/mbeacon
  application_id: app-1234
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Collector.ServerID != 1 {
		t.Errorf("server_id default: got %d, want 1", cfg.Collector.ServerID)
	}
	if cfg.Cache.MaxRecordAge.Std() != 105*time.Minute {
		t.Errorf("max_record_age default: got %v, want 105m", cfg.Cache.MaxRecordAge.Std())
	}
	if cfg.Sender.MaxChunkSize != 30*1024 {
		t.Errorf("max_chunk_size default: got %d, want 30720", cfg.Sender.MaxChunkSize)
	}
	if cfg.Relay.SocketPath == "" {
		t.Error("socket_path default missing")
	}
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
cache:
  max_record_age: 30m
  eviction_interval: 5s
sender:
  send_interval: 45s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.MaxRecordAge.Std() != 30*time.Minute {
		t.Errorf("max_record_age: got %v, want 30m", cfg.Cache.MaxRecordAge.Std())
	}
	if cfg.Sender.SendInterval.Std() != 45*time.Second {
		t.Errorf("send_interval: got %v, want 45s", cfg.Sender.SendInterval.Std())
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load via %s: %v", EnvConfigPath, err)
	}
	if cfg.Collector.ApplicationID != "app-1234" {
		t.Errorf("application_id: got %q", cfg.Collector.ApplicationID)
	}
}

func TestLoadWithoutPathFails(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error when no config path is available")
	}
}

func TestValidateRejectsMissingCollector(t *testing.T) {
	path := writeConfig(t, `
collector:
  application_id: app-1234
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "collector.url") {
		t.Fatalf("expected collector.url error, got %v", err)
	}
}

func TestValidateRejectsInvertedMemoryBounds(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
cache:
  lower_memory_bound: 200
  upper_memory_bound: 100
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "lower_memory_bound") {
		t.Fatalf("expected memory bound error, got %v", err)
	}
}

func TestValidateRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
sender:
  send_interval: not-a-duration
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected duration parse error")
	}
}
