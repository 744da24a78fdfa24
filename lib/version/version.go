// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

// Package version exposes the build version stamped at link time.
package version

import "fmt"

// version is overridden at build time via
// -ldflags "-X github.com/beaconkit/beaconkit/lib/version.version=v1.2.3".
var version = "development"

// Info returns the build version string.
func Info() string { return version }

// Print writes "<binary> <version>" to stdout.
func Print(binary string) {
	fmt.Printf("%s %s\n", binary, Info())
}
