// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tmp117_test

import (
	"fmt"
	"log"

	"github.com/GermanBionicSystems/tmp117"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Use i2creg I²C bus registry to find the first available I²C bus.
	b, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer b.Close()

	// Create a new TMP117 device at the default address. Construction resets
	// the sensor and blocks until the first conversion completes.
	d, err := tmp117.NewI2C(b, tmp117.DefaultAddress, nil)
	if err != nil {
		log.Fatalf("failed to initialize TMP117: %v", err)
	}
	defer d.Halt()

	sn, err := d.SerialNumber()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("serial number: %012x\n", sn)

	// Alert when the temperature leaves the 10°C..25°C window.
	if err := d.SetLowLimit(physic.ZeroCelsius + 10*physic.Kelvin); err != nil {
		log.Fatal(err)
	}
	if err := d.SetHighLimit(physic.ZeroCelsius + 25*physic.Kelvin); err != nil {
		log.Fatal(err)
	}

	e := physic.Env{}
	if err := d.Sense(&e); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%8s\n", e.Temperature)

	status, err := d.AlertStatus()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("high alert: %t low alert: %t\n", status.HighAlert, status.LowAlert)
}

func ExampleDev_MeasureOnce() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	b, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer b.Close()

	d, err := tmp117.NewI2C(b, tmp117.DefaultAddress, nil)
	if err != nil {
		log.Fatalf("failed to initialize TMP117: %v", err)
	}
	defer d.Halt()

	// Average 64 samples into the single conversion.
	if err := d.SetAveragedMeasurements(tmp117.Average64x); err != nil {
		log.Fatal(err)
	}
	t, err := d.MeasureOnce()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%8s\n", t)
}
