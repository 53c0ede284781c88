// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lcd160x drives a 16x2 or 16x4 character LCD behind a PCF8574 I²C
// backpack, or an emulated one on the terminal.
//
// Usage:
//
//	lcd160x [options] <command> [arguments]
//
// Commands:
//
//	init                      Run the bring-up sequence again
//	clear                     Clear the display
//	print <row> <col> <text>  Print text at a position
//	progress <row> <percent>  Draw a progress bar on a row
//	clear-row <row>           Blank one row
//	cursor on|blink|off       Set the cursor visibility
//	backlight on|off          Switch the backlight
//	watch                     Refresh the configured screens on a schedule
//	snapshot <file.png>       Save the emulated panel as a PNG (with -sim)
//
// On hardware the commands attach to the display as the previous run left
// it; run init once after power on. Several commands can be given at once,
// separated by a ";" argument. This is how the emulator, which starts blank
// every run, is drawn and saved:
//
//	lcd160x -sim print 0 0 Hello ";" progress 1 40 ";" snapshot panel.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/aZholtikov/zh-160x-i2c/internal/config"
	"github.com/sirupsen/logrus"
)

type flags struct {
	configPath string
	sim        bool
	bus        string
	addr       uint16
	addrSet    bool
	variant    string
	verbose    bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*flags, error) {
	f := &flags{}
	fs.StringVar(&f.configPath, "config", "", "YAML config file; created with defaults if missing")
	fs.BoolVar(&f.sim, "sim", false, "Drive an emulated panel on the terminal instead of hardware")
	fs.StringVar(&f.bus, "bus", "", "I²C bus name (overrides config)")
	fs.Func("addr", "I²C address of the backpack, e.g. 0x27 (overrides config)", func(s string) error {
		v, err := strconv.ParseUint(s, 0, 7)
		if err != nil {
			return err
		}
		f.addr = uint16(v)
		f.addrSet = true
		return nil
	})
	fs.StringVar(&f.variant, "variant", "", "Display variant, 16x2 or 16x4 (overrides config)")
	fs.BoolVar(&f.verbose, "v", false, "Log every display operation")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func loadConfig(f *flags) (*config.Config, error) {
	var cfg *config.Config
	if f.configPath == "" {
		cfg = config.Default()
	} else {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	if f.bus != "" {
		cfg.Bus = f.bus
	}
	if f.addrSet {
		cfg.Address = f.addr
	}
	if f.variant != "" {
		cfg.Variant = f.variant
	}
	if f.verbose {
		cfg.LogLevel = "debug"
	}
	cfg.Normalize()
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config, w io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log.SetLevel(level)
	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("config: unknown log format %q", cfg.LogFormat)
	}
	return log, nil
}

func mainImpl() error {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [options] <command> [arguments]\n\n", fs.Name())
		fmt.Fprintln(fs.Output(), "Commands: init, clear, print, progress, clear-row, cursor, backlight, watch, snapshot")
		fmt.Fprintln(fs.Output(), "Separate several commands with a \";\" argument.")
		fmt.Fprintln(fs.Output(), "\nOptions:")
		fs.PrintDefaults()
	}
	f, err := parseFlags(fs, os.Args[1:])
	if err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("missing command")
	}
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"bus":     cfg.Bus,
		"address": fmt.Sprintf("0x%02x", cfg.Address),
		"variant": cfg.Variant,
		"sim":     f.sim,
	}).Debug("effective config")

	var a *app
	if f.sim {
		a, err = openSim(cfg, log, nil)
	} else {
		a, err = openHardware(cfg, log)
	}
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.run(ctx, fs.Args())
}

func main() {
	if err := mainImpl(); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "lcd160x: %s.\n", err)
		}
		os.Exit(1)
	}
}
