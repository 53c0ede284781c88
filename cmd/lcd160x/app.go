// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aZholtikov/zh-160x-i2c/internal/config"
	"github.com/aZholtikov/zh-160x-i2c/lcd160x"
	"github.com/aZholtikov/zh-160x-i2c/lcdsim"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var errUsage = errors.New("usage")

// app is one opened display plus what the commands need around it.
type app struct {
	cfg *config.Config
	log logrus.FieldLogger
	dev *lcd160x.Dev

	// Only set with -sim.
	panel   *lcdsim.Panel
	console *lcdsim.Console

	closers []func() error
}

func driverOpts(cfg *config.Config, log logrus.FieldLogger) (*lcd160x.Opts, error) {
	variant, err := lcd160x.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	return &lcd160x.Opts{Variant: variant, PulseWidth: cfg.PulseWidth, Logger: log}, nil
}

func openHardware(cfg *config.Config, log logrus.FieldLogger) (*app, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, err
	}
	a, err := openBackpack(bus, cfg, log)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	a.closers = append(a.closers, bus.Close)
	return a, nil
}

// openBackpack attaches to the display on bus without running the bring-up,
// so that what earlier runs printed stays on screen. The init command, and
// watch when it starts, bring the controller up.
func openBackpack(bus i2c.Bus, cfg *config.Config, log logrus.FieldLogger) (*app, error) {
	opts, err := driverOpts(cfg, log)
	if err != nil {
		return nil, err
	}
	dev, err := lcd160x.AttachPCF8574Backpack(bus, cfg.Address, opts)
	if err != nil {
		return nil, err
	}
	log.WithField("display", dev.String()).Debug("display attached")
	return &app{cfg: cfg, log: log, dev: dev}, nil
}

// openSim opens an emulated panel drawn to w, or to a colorable stdout when
// w is nil. The panel only lives as long as the process, so it is brought up
// right away.
func openSim(cfg *config.Config, log logrus.FieldLogger, w io.Writer) (*app, error) {
	opts, err := driverOpts(cfg, log)
	if err != nil {
		return nil, err
	}
	panel, err := lcdsim.New(opts.Variant.Rows())
	if err != nil {
		return nil, err
	}
	copts := lcdsim.DefaultConsoleOpts
	copts.W = w
	dev, err := lcd160x.New(panel, opts)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, dev: dev, panel: panel, console: lcdsim.NewConsole(panel, &copts)}, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
}

// commandSeparator splits a command line into several commands run on the
// same display, e.g. print 0 0 hi ";" snapshot out.png.
const commandSeparator = ";"

// run executes the commands in args in order and stops at the first error.
func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	start := 0
	for ix := 0; ix <= len(args); ix++ {
		if ix < len(args) && args[ix] != commandSeparator {
			continue
		}
		if err := a.runOne(ctx, args[start:ix]); err != nil {
			return err
		}
		start = ix + 1
	}
	return nil
}

// runOne executes one command.
func (a *app) runOne(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: empty command", errUsage)
	}
	cmd, args := args[0], args[1:]
	var err error
	switch cmd {
	case "init":
		err = a.dev.Init(a.dev.Variant())
	case "clear":
		err = a.dev.Clear()
	case "print":
		err = a.print(args)
	case "progress":
		err = a.progress(args)
	case "clear-row":
		err = a.clearRow(args)
	case "cursor":
		err = a.cursor(args)
	case "backlight":
		err = a.backlight(args)
	case "watch":
		return a.watch(ctx)
	case "snapshot":
		return a.snapshot(args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	if err != nil {
		return err
	}
	return a.refreshConsole()
}

func (a *app) refreshConsole() error {
	if a.console == nil {
		return nil
	}
	return a.console.Refresh()
}

func (a *app) print(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: print <row> <col> <text>", errUsage)
	}
	row, err := atoi("row", args[0])
	if err != nil {
		return err
	}
	col, err := atoi("col", args[1])
	if err != nil {
		return err
	}
	if err := a.dev.SetCursor(row, col); err != nil {
		return err
	}
	return a.dev.PrintText(strings.Join(args[2:], " "))
}

func (a *app) progress(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: progress <row> <percent>", errUsage)
	}
	row, err := atoi("row", args[0])
	if err != nil {
		return err
	}
	percent, err := atoi("percent", args[1])
	if err != nil {
		return err
	}
	return a.dev.PrintProgressBar(row, percent)
}

func (a *app) clearRow(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: clear-row <row>", errUsage)
	}
	row, err := atoi("row", args[0])
	if err != nil {
		return err
	}
	return a.dev.ClearRow(row)
}

func (a *app) cursor(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: cursor on|blink|off", errUsage)
	}
	switch args[0] {
	case "on":
		return a.dev.EnableCursor(false)
	case "blink":
		return a.dev.EnableCursor(true)
	case "off":
		return a.dev.DisableCursor()
	}
	return fmt.Errorf("%w: cursor on|blink|off", errUsage)
}

func (a *app) backlight(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: backlight on|off", errUsage)
	}
	switch args[0] {
	case "on":
		return a.dev.Backlight(display.Intensity(1))
	case "off":
		return a.dev.Backlight(0)
	}
	return fmt.Errorf("%w: backlight on|off", errUsage)
}

func (a *app) snapshot(args []string) error {
	if a.panel == nil {
		return fmt.Errorf("%w: snapshot needs -sim", errUsage)
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: snapshot <file.png>", errUsage)
	}
	return a.panel.SavePNG(args[0], nil)
}

func atoi(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", errUsage, name, s)
	}
	return v, nil
}
