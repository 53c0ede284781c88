// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcd160x drives 16 column HD44780 character LCDs (LCD1602 and
// LCD1604) through an 8 bit I²C I/O expander such as the PCF8574 backpack.
//
// The controller runs in 4 bit mode: each command or character is sent as
// two nibbles on D4-D7, each latched by a pulse on E. Every step goes through
// the Expander and any failure aborts the operation at once without retry;
// call Init to get the controller back into a known state.
//
// Rows and columns are 0 based. The 4 row module maps its rows to DDRAM
// 0x00, 0x40, 0x10 and 0x50. Text is not wrapped: characters written past
// column 15 land in DDRAM that may not be visible, or on another row.
//
// Implements periph.io/x/conn/v3/display.TextDisplay and
// display.DisplayBacklight.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package lcd160x
