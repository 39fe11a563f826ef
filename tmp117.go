// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tmp117

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// The first conversion out of reset is averaged 8x and takes about a second.
const firstConversion = time.Second

// Dev represents a TMP117 sensor.
//
// All methods serialize access through an internal mutex. A single Dev must
// own the sensor; interleaving raw bus traffic to the same address from
// elsewhere corrupts the read-modify-write sequences on the configuration
// register.
type Dev struct {
	d    *i2c.Dev
	opts Opts
	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// Opts holds the configuration options for the driver.
type Opts struct {
	// PollInterval is the delay between data-ready polls while waiting for a
	// conversion to complete. Leave 0 to use the 1ms default.
	PollInterval time.Duration
	// MeasurementTimeout bounds how long MeasureOnce and SetMeasurementMode
	// wait for the data-ready flag. 0 means no timeout: the call blocks until
	// the conversion completes, which can take several seconds with high
	// averaging factors and long measurement delays.
	MeasurementTimeout time.Duration
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	PollInterval: time.Millisecond,
}

// NewI2C returns a TMP117 sensor using the specified bus and address. The
// device identity is verified, then the sensor is reset and placed in
// Continuous mode. NewI2C blocks until the first conversion completes, about
// a second with the power-on averaging defaults. The Opts can be nil.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, opts: *opts}
	if d.opts.PollInterval <= 0 {
		d.opts.PollInterval = time.Millisecond
	}

	got, err := d.readRegister(regDeviceID)
	if err != nil {
		return nil, fmt.Errorf("tmp117: reading device ID: %w", err)
	}
	if got != deviceID {
		return nil, &IdentificationError{Got: got}
	}
	if err := d.Reset(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	_, err = d.setModeAndWait(Continuous)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	time.Sleep(firstConversion)
	return d, nil
}

// Sense reads the most recent conversion result. It does not wait for a new
// conversion; in Shutdown mode it keeps returning the last measured value.
// Implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.readTemperature()
	if err != nil {
		return err
	}
	e.Temperature = t
	return nil
}

// SenseContinuous reads from the device at the given interval and writes the
// values to the returned channel. Implements physic.SenseEnv. To terminate
// the reader, call Halt().
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("tmp117: already sensing continuously")
	}
	d.stop = make(chan struct{})
	d.wg.Add(1)
	sensing := make(chan physic.Env, 16)
	go func(stop <-chan struct{}) {
		defer d.wg.Done()
		defer close(sensing)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var e physic.Env
				if err := d.Sense(&e); err == nil {
					select {
					case sensing <- e:
					default:
					}
				}
			}
		}
	}(d.stop)
	return sensing, nil
}

// Precision returns the smallest temperature step the device can report,
// 0.0078125°C. Implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = resolution
	e.Pressure = 0
	e.Humidity = 0
}

// MeasureOnce arms a single conversion, waits for it to complete and returns
// the result. Afterwards the device settles into Shutdown on its own until
// re-armed. With a high averaging factor the wait can take several seconds;
// set Opts.MeasurementTimeout to bound it.
func (d *Dev) MeasureOnce() (physic.Temperature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setModeAndWait(OneShot)
}

// MeasurementMode returns the conversion scheduling mode the device is in.
// Note that after a OneShot conversion completes the device reports Shutdown.
func (d *Dev) MeasurementMode() (MeasurementMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bits, err := d.readBits(fieldMode)
	return modeFromBits(bits), err
}

// modeFromBits maps the raw MOD field to a MeasurementMode. The reserved code
// 0b10 also selects continuous conversion, per table 7-7 of the datasheet.
func modeFromBits(bits uint16) MeasurementMode {
	if bits == 0b10 {
		return Continuous
	}
	return MeasurementMode(bits)
}

// SetMeasurementMode switches the conversion scheduling of the device. For
// Continuous and OneShot the call blocks until the first conversion under
// the new mode completes. Shutdown takes effect immediately.
func (d *Dev) SetMeasurementMode(mode MeasurementMode) error {
	switch mode {
	case Continuous, OneShot, Shutdown:
	default:
		return &RangeError{What: fmt.Sprintf("measurement mode must be Continuous, Shutdown or OneShot, got %#02x", uint8(mode))}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if mode == Shutdown {
		return d.writeBits(fieldMode, uint16(mode))
	}
	_, err := d.setModeAndWait(mode)
	return err
}

// Reset returns the sensor to its power-on configuration by pulsing the
// soft-reset bit. The bit self-clears once the reset completes.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeBits(fieldSoftReset, 1)
}

// Halt stops any SenseContinuous reader and puts the device into Shutdown.
// Unlike SetMeasurementMode it does not wait for a conversion. Implements
// conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeBits(fieldMode, uint16(Shutdown))
}

// AlertStatus returns the current state of the high and low alert flags. The
// flags clear on read, so both are captured in a single register read and
// handed back together.
//
// In AlertWindow mode each flag tracks its own limit. In AlertHysteresis
// mode only the high flag is meaningful; it stays asserted until the
// temperature falls below the low limit.
func (d *Dev) AlertStatus() (AlertStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	high, low, _, err := d.readStatus()
	return AlertStatus{HighAlert: high, LowAlert: low}, err
}

// AveragedMeasurements returns the averaging factor applied to conversions.
func (d *Dev) AveragedMeasurements() (AveragingFactor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bits, err := d.readBits(fieldAveraging)
	return AveragingFactor(bits), err
}

// SetAveragedMeasurements sets the number of internal samples averaged into
// one conversion result.
func (d *Dev) SetAveragedMeasurements(a AveragingFactor) error {
	if a > Average64x {
		return &RangeError{What: fmt.Sprintf("averaging factor must be 0, 1, 2 or 3, got %d", a)}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeBits(fieldAveraging, uint16(a))
}

// MeasurementDelay returns the minimum time between conversion cycles.
func (d *Dev) MeasurementDelay() (MeasurementDelay, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bits, err := d.readBits(fieldDelay)
	return MeasurementDelay(bits), err
}

// SetMeasurementDelay sets the minimum time between conversion cycles in
// Continuous mode. The cycle stretches when the averaging factor needs more
// time than the selected delay.
func (d *Dev) SetMeasurementDelay(md MeasurementDelay) error {
	if md > Delay16s {
		return &RangeError{What: fmt.Sprintf("measurement delay must be 0 through 7, got %d", md)}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeBits(fieldDelay, uint16(md))
}

// AlertMode returns how the device drives the alert flags.
func (d *Dev) AlertMode() (AlertMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bits, err := d.readBits(fieldAlertMode)
	return AlertMode(bits), err
}

// SetAlertMode selects between window and hysteresis behavior for the alert
// flags. Refer to AlertWindow and AlertHysteresis for the semantics.
func (d *Dev) SetAlertMode(mode AlertMode) error {
	if mode > AlertHysteresis {
		return &RangeError{What: fmt.Sprintf("alert mode must be 0 or 1, got %d", mode)}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeBits(fieldAlertMode, uint16(mode))
}

// HighLimit returns the temperature above which the high alert flag asserts.
func (d *Dev) HighLimit() (physic.Temperature, error) {
	return d.readLimit(regHighLimit)
}

// SetHighLimit sets the temperature above which the high alert flag asserts.
// The value must be at least -256°C and below 256°C.
func (d *Dev) SetHighLimit(t physic.Temperature) error {
	return d.writeLimit(regHighLimit, t)
}

// LowLimit returns the temperature below which the low alert flag asserts.
func (d *Dev) LowLimit() (physic.Temperature, error) {
	return d.readLimit(regLowLimit)
}

// SetLowLimit sets the temperature below which the low alert flag asserts.
// The value must be at least -256°C and below 256°C.
func (d *Dev) SetLowLimit(t physic.Temperature) error {
	return d.writeLimit(regLowLimit, t)
}

// TemperatureOffset returns the user programmed correction the device adds to
// its conversions. The value is a temperature difference, not an absolute
// temperature; zero means no correction.
func (d *Dev) TemperatureOffset() (physic.Temperature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := d.readRegister(regTemperatureOffset)
	if err != nil {
		return 0, err
	}
	return countToDelta(int16(raw)), nil
}

// SetTemperatureOffset programs a correction of at least -256°C and below
// 256°C into the offset register. The device applies it in hardware; the
// driver never adds it to readings itself.
func (d *Dev) SetTemperatureOffset(dt physic.Temperature) error {
	count, err := deltaToCount(dt)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeRegister(regTemperatureOffset, uint16(count))
}

// InterruptPolarityHigh returns true when the alert pin drives active-high.
func (d *Dev) InterruptPolarityHigh() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bits, err := d.readBits(fieldIntPolarity)
	return bits != 0, err
}

// SetInterruptPolarityHigh selects the active level of the alert pin.
func (d *Dev) SetInterruptPolarityHigh(high bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeBits(fieldIntPolarity, boolBit(high))
}

// DataReadyInterruptEnabled returns true when the alert pin signals
// data-ready instead of the alert flags.
func (d *Dev) DataReadyInterruptEnabled() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bits, err := d.readBits(fieldDataReadyInt)
	return bits != 0, err
}

// SetDataReadyInterruptEnabled routes the data-ready flag to the alert pin
// when enabled.
func (d *Dev) SetDataReadyInterruptEnabled(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeBits(fieldDataReadyInt, boolBit(enabled))
}

// EEPROMBusy returns true while the device EEPROM is in a programming cycle
// or the device is still booting its registers from EEPROM.
func (d *Dev) EEPROMBusy() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bits, err := d.readBits(fieldEEPROMBusy)
	return bits != 0, err
}

// SerialNumber reads the 48 bit factory programmed unique identifier. The
// value is assembled big-endian from the three EEPROM words and re-read from
// the device on every call.
func (d *Dev) SerialNumber() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var words [3]uint16
	for i, reg := range [...]byte{regEEPROM1, regEEPROM2, regEEPROM3} {
		w, err := d.readRegister(reg)
		if err != nil {
			return 0, err
		}
		words[i] = w
	}
	return int64(words[0])<<32 | int64(words[1])<<16 | int64(words[2]), nil
}

// Configuration is a snapshot of the running configuration of the device.
// The alert and data-ready flags are not part of the snapshot: reading the
// configuration register can clear them, so they are only handed out through
// AlertStatus which captures them coherently.
type Configuration struct {
	// The 48 bit unique serial number of the device. Read-Only.
	SerialNumber int64
	Mode         MeasurementMode
	// Samples averaged into one conversion.
	AveragedMeasurements AveragingFactor
	// Minimum time between conversion cycles.
	MeasurementDelay MeasurementDelay
	AlertMode        AlertMode
	HighLimit        physic.Temperature
	LowLimit         physic.Temperature
	// Hardware correction added to conversions. A difference, not an
	// absolute temperature.
	TemperatureOffset physic.Temperature
	// True when the alert pin drives active-high.
	InterruptPolarityHigh bool
	// True when the alert pin signals data-ready instead of alerts.
	DataReadyInterruptEnabled bool
	// True while an EEPROM programming cycle is in progress. Read-Only.
	EEPROMBusy bool
}

// ReadConfiguration returns a snapshot of the device configuration. The
// configuration word is read in a single transaction and decomposed, then the
// limit, offset and EEPROM registers are read.
//
// To examine the device use:
//
//	cfg, _ := dev.ReadConfiguration()
//	fmt.Printf("Configuration=%#v\n", cfg)
func (d *Dev) ReadConfiguration() (*Configuration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	word, err := d.readRegister(regConfiguration)
	if err != nil {
		return nil, err
	}
	cfg := &Configuration{
		Mode:                      modeFromBits(fieldMode.extract(word)),
		AveragedMeasurements:      AveragingFactor(fieldAveraging.extract(word)),
		MeasurementDelay:          MeasurementDelay(fieldDelay.extract(word)),
		AlertMode:                 AlertMode(fieldAlertMode.extract(word)),
		InterruptPolarityHigh:     fieldIntPolarity.extract(word) != 0,
		DataReadyInterruptEnabled: fieldDataReadyInt.extract(word) != 0,
		EEPROMBusy:                fieldEEPROMBusy.extract(word) != 0,
	}

	raw, err := d.readRegister(regHighLimit)
	if err != nil {
		return nil, err
	}
	cfg.HighLimit = countToTemperature(int16(raw))

	raw, err = d.readRegister(regLowLimit)
	if err != nil {
		return nil, err
	}
	cfg.LowLimit = countToTemperature(int16(raw))

	raw, err = d.readRegister(regTemperatureOffset)
	if err != nil {
		return nil, err
	}
	cfg.TemperatureOffset = countToDelta(int16(raw))

	var words [3]uint16
	for i, reg := range [...]byte{regEEPROM1, regEEPROM2, regEEPROM3} {
		w, err := d.readRegister(reg)
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	cfg.SerialNumber = int64(words[0])<<32 | int64(words[1])<<16 | int64(words[2])
	return cfg, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("tmp117: %s", d.d.String())
}

// setModeAndWait writes the mode field, polls the data-ready flag and returns
// the fresh conversion result. The caller must hold d.mu.
func (d *Dev) setModeAndWait(mode MeasurementMode) (physic.Temperature, error) {
	if err := d.writeBits(fieldMode, uint16(mode)); err != nil {
		return 0, err
	}
	var deadline time.Time
	if d.opts.MeasurementTimeout > 0 {
		deadline = time.Now().Add(d.opts.MeasurementTimeout)
	}
	for {
		_, _, ready, err := d.readStatus()
		if err != nil {
			return 0, err
		}
		if ready {
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return 0, &ReadTimeoutError{}
		}
		time.Sleep(d.opts.PollInterval)
	}
	return d.readTemperature()
}

// readStatus reads and decomposes the alert/data-ready status group. The
// flags clear on read, so this is the only read path for the group: the
// readiness poll and AlertStatus both consume the same snapshot. The caller
// must hold d.mu.
func (d *Dev) readStatus() (highAlert, lowAlert, dataReady bool, err error) {
	bits, err := d.readBits(fieldStatus)
	if err != nil {
		return false, false, false, err
	}
	return bits&0b100 != 0, bits&0b010 != 0, bits&0b001 != 0, nil
}

func (d *Dev) readTemperature() (physic.Temperature, error) {
	raw, err := d.readRegister(regTemperature)
	if err != nil {
		return 0, err
	}
	return countToTemperature(int16(raw)), nil
}

func (d *Dev) readLimit(reg byte) (physic.Temperature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := d.readRegister(reg)
	if err != nil {
		return 0, err
	}
	return countToTemperature(int16(raw)), nil
}

func (d *Dev) writeLimit(reg byte, t physic.Temperature) error {
	count, err := temperatureToCount(t)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeRegister(reg, uint16(count))
}

// readRegister reads one 16 bit big-endian register in a single transaction.
func (d *Dev) readRegister(reg byte) (uint16, error) {
	var buf [2]byte
	if err := d.d.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// writeRegister writes one 16 bit big-endian register in a single
// transaction.
func (d *Dev) writeRegister(reg byte, value uint16) error {
	return d.d.Tx([]byte{reg, byte(value >> 8), byte(value)}, nil)
}

func (d *Dev) readBits(f field) (uint16, error) {
	word, err := d.readRegister(f.reg)
	if err != nil {
		return 0, err
	}
	return f.extract(word), nil
}

// writeBits updates one field of a register with a read-modify-write,
// leaving the sibling fields untouched.
func (d *Dev) writeBits(f field, value uint16) error {
	word, err := d.readRegister(f.reg)
	if err != nil {
		return err
	}
	word = word&^f.mask() | value<<f.offset&f.mask()
	return d.writeRegister(f.reg, word)
}

func boolBit(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
