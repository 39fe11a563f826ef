// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tmp117

import "fmt"

// IdentificationError is returned by NewI2C when the device-ID register does
// not identify a TMP117. No further register access is performed.
type IdentificationError struct {
	Got uint16
}

func (e *IdentificationError) Error() string {
	return fmt.Sprintf("tmp117: device ID 0x%04x, expected 0x%04x", e.Got, deviceID)
}

// RangeError is returned when a value to be written is outside what the
// device can store. Validation happens before any bus transaction, so the
// device configuration is left untouched.
type RangeError struct {
	What string
}

func (e *RangeError) Error() string {
	return "tmp117: " + e.What
}

// ReadTimeoutError is returned when the device did not raise the data-ready
// flag within Opts.MeasurementTimeout.
type ReadTimeoutError struct{}

func (e *ReadTimeoutError) Error() string {
	return "tmp117: timeout waiting for a measurement"
}
