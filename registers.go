// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tmp117

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// Register addresses. Refer to section 7.5 of the datasheet.
const (
	regTemperature       byte = 0x00
	regConfiguration     byte = 0x01
	regHighLimit         byte = 0x02
	regLowLimit          byte = 0x03
	regEEPROMUnlock      byte = 0x04 // EEPROM programming is not supported.
	regEEPROM1           byte = 0x05
	regEEPROM2           byte = 0x06
	regTemperatureOffset byte = 0x07
	regEEPROM3           byte = 0x08
	regDeviceID          byte = 0x0F
)

const (
	// DefaultAddress is the default I²C address of the TMP117 (ADD0 to GND).
	DefaultAddress uint16 = 0x48

	// Content of the device-ID register for a genuine TMP117.
	deviceID uint16 = 0x0117

	// resolution is the temperature scale of the device, 0.0078125 °C per
	// count of the temperature, limit and offset registers.
	resolution physic.Temperature = 7_812_500 * physic.NanoKelvin
)

// field addresses a bit-field inside a 16 bit register. The configuration
// register packs several independent fields; all access goes through
// readBits/writeBits so that updating one field never disturbs its siblings.
type field struct {
	reg    byte
	offset uint
	width  uint
}

var (
	// The alert and data-ready flags clear on read, so the group is only ever
	// read as a whole through Dev.readStatus.
	fieldStatus       = field{regConfiguration, 13, 3}
	fieldEEPROMBusy   = field{regConfiguration, 12, 1}
	fieldMode         = field{regConfiguration, 10, 2}
	fieldDelay        = field{regConfiguration, 7, 3}
	fieldAveraging    = field{regConfiguration, 5, 2}
	fieldAlertMode    = field{regConfiguration, 4, 1}
	fieldIntPolarity  = field{regConfiguration, 3, 1}
	fieldDataReadyInt = field{regConfiguration, 2, 1}
	fieldSoftReset    = field{regConfiguration, 1, 1}
)

func (f field) mask() uint16 {
	return uint16((1<<f.width)-1) << f.offset
}

func (f field) extract(word uint16) uint16 {
	return (word >> f.offset) & uint16((1<<f.width)-1)
}

// MeasurementMode selects how the device schedules conversions.
type MeasurementMode uint8

const (
	// Continuous performs conversions back to back, paced by the averaging
	// factor and measurement delay.
	Continuous MeasurementMode = 0b00
	// Shutdown stops conversions. The temperature register retains the last
	// result.
	Shutdown MeasurementMode = 0b01
	// OneShot performs a single conversion and then drops into Shutdown until
	// re-armed.
	OneShot MeasurementMode = 0b11
)

// AlertMode selects how the device drives the alert flags.
type AlertMode uint8

const (
	// AlertWindow raises the high and low flags independently whenever the
	// temperature is above the high limit or below the low limit.
	AlertWindow AlertMode = 0
	// AlertHysteresis keeps the high flag asserted until the temperature
	// falls below the low limit. The low flag is not meaningful in this mode.
	AlertHysteresis AlertMode = 1
)

// AveragingFactor is the number of internal samples averaged into one
// conversion result. Higher factors reduce noise but lengthen conversions;
// a 64x conversion takes roughly one second.
type AveragingFactor uint8

const (
	Average1x AveragingFactor = iota
	Average8x
	Average32x
	Average64x
)

// MeasurementDelay is the minimum time between conversion cycles in
// Continuous mode. The actual cycle can be longer when the averaging factor
// needs more time than the selected delay.
type MeasurementDelay uint8

const (
	// Delay15ms is nominally 15.5ms.
	Delay15ms MeasurementDelay = iota
	Delay125ms
	Delay250ms
	Delay500ms
	Delay1s
	Delay4s
	Delay8s
	Delay16s
)

// AlertStatus is a coherent snapshot of the alert flags, captured in a single
// register read.
type AlertStatus struct {
	HighAlert bool
	LowAlert  bool
}

// countToTemperature converts a raw signed register count into an absolute
// temperature.
func countToTemperature(count int16) physic.Temperature {
	return physic.ZeroCelsius + countToDelta(count)
}

// countToDelta converts a raw signed register count into a temperature
// difference. Used for the offset register, which stores a correction rather
// than an absolute temperature.
func countToDelta(count int16) physic.Temperature {
	return physic.Temperature(count) * resolution
}

// temperatureToCount converts an absolute temperature into the raw count the
// limit registers store.
func temperatureToCount(t physic.Temperature) (int16, error) {
	return deltaToCount(t - physic.ZeroCelsius)
}

// deltaToCount converts a temperature difference into raw counts. Values are
// truncated toward zero at the resolution boundary, matching how the device
// quantizes register writes.
func deltaToCount(dt physic.Temperature) (int16, error) {
	if dt < -256*physic.Kelvin || dt >= 256*physic.Kelvin {
		return 0, &RangeError{What: fmt.Sprintf("temperature must be at least -256°C and below 256°C, got %g°C", float64(dt)/float64(physic.Kelvin))}
	}
	return int16(dt / resolution), nil
}
