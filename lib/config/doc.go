// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for BeaconKit
// components.
//
// Configuration is loaded from a single YAML file specified by:
//   - the BEACONKIT_CONFIG environment variable, or
//   - the --config flag passed to the command
//
// There are no fallbacks or automatic discovery. Unset fields take
// documented defaults; Validate rejects inconsistent values with
// explicit errors.
package config
