// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package statemachine

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies this package's tests leak no goroutines, grounded on
// the pack's goleak.VerifyNone usage in transport/test/conn.go; Handle is
// synchronous here, so a package-wide VerifyTestMain is enough without a
// per-test TearDown.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
