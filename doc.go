// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tmp117 controls a Texas Instruments TMP117 high-accuracy I²C
// temperature sensor.
//
// Range: -55°C - 150°C
//
// Accuracy: ±0.1°C from -20°C to 50°C
//
// Resolution: 0.0078125°C
//
// The driver verifies the factory device ID at construction, supports the
// continuous, one-shot and shutdown conversion modes, the window and
// hysteresis alert limits, the averaging and conversion-cycle settings, the
// hardware temperature offset and the factory programmed serial number. The
// tmp117.Dev type implements the physic.SenseEnv interface; the physic.Env
// measurement results contain a temperature value only.
//
// For detailed information, refer to the [datasheet].
//
// [datasheet]: https://www.ti.com/lit/ds/symlink/tmp117.pdf
package tmp117
