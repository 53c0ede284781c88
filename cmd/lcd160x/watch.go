// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/aZholtikov/zh-160x-i2c/internal/config"
	"github.com/aZholtikov/zh-160x-i2c/lcd160x"
	"github.com/robfig/cron/v3"
)

// screen is a configured row with its template compiled.
type screen struct {
	config.Screen
	tmpl *template.Template
}

// screenData is what a text screen template sees.
type screenData struct {
	Now  time.Time
	Host string
}

func compileScreens(in []config.Screen) ([]screen, error) {
	out := make([]screen, 0, len(in))
	for ix, s := range in {
		sc := screen{Screen: s}
		if s.Kind == config.KindText {
			t, err := template.New(fmt.Sprintf("screen%d", ix)).Parse(s.Text)
			if err != nil {
				return nil, fmt.Errorf("screen %d: %w", ix, err)
			}
			sc.tmpl = t
		}
		out = append(out, sc)
	}
	return out, nil
}

// text returns the characters to print from the screen column to the end of
// the row, space padded so that stale characters are overwritten.
func (s *screen) text(now time.Time, host string) (string, error) {
	var line string
	switch s.Kind {
	case config.KindClock:
		line = now.Format(s.Text)
	default:
		var buf bytes.Buffer
		if err := s.tmpl.Execute(&buf, screenData{Now: now, Host: host}); err != nil {
			return "", err
		}
		line = buf.String()
	}
	line = strings.ReplaceAll(line, "\n", " ")
	width := lcd160x.Cols - s.Col
	if len(line) > width {
		return line[:width], nil
	}
	return line + strings.Repeat(" ", width-len(line)), nil
}

// spanPercent is how far now is into the current minute or hour.
func spanPercent(span string, now time.Time) int {
	if span == "hour" {
		return (now.Minute()*60 + now.Second()) * 100 / 3600
	}
	return now.Second() * 100 / 60
}

// refresher redraws every screen. The mutex serializes access to the
// display between overlapping jobs and the final redraw.
type refresher struct {
	a       *app
	screens []screen
	host    string

	mu sync.Mutex
}

func (r *refresher) refresh(now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ix := range r.screens {
		s := &r.screens[ix]
		if s.Kind == config.KindProgress {
			if err := r.a.dev.PrintProgressBar(s.Row, spanPercent(s.Span, now)); err != nil {
				return err
			}
			continue
		}
		line, err := s.text(now, r.host)
		if err != nil {
			return fmt.Errorf("screen %d: %w", ix, err)
		}
		if err := r.a.dev.SetCursor(s.Row, s.Col); err != nil {
			return err
		}
		if err := r.a.dev.PrintText(line); err != nil {
			return err
		}
	}
	return r.a.refreshConsole()
}

func (a *app) newRefresher() (*refresher, error) {
	screens, err := compileScreens(a.cfg.Screens)
	if err != nil {
		return nil, err
	}
	host, err := os.Hostname()
	if err != nil {
		a.log.WithError(err).Warn("no hostname")
		host = "?"
	}
	return &refresher{a: a, screens: screens, host: host}, nil
}

// watch refreshes the screens on the configured schedule until ctx is done.
func (a *app) watch(ctx context.Context) error {
	r, err := a.newRefresher()
	if err != nil {
		return err
	}
	// watch owns the display from here on; start from a known state.
	if err := a.dev.Init(a.dev.Variant()); err != nil {
		return err
	}
	clog := cron.PrintfLogger(a.log)
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc(a.cfg.Refresh, func() {
		if err := r.refresh(time.Now()); err != nil {
			a.log.WithError(err).Error("refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", a.cfg.Refresh, err)
	}
	a.log.WithField("schedule", a.cfg.Refresh).Info("watching")
	if err := r.refresh(time.Now()); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	a.log.Info("watch stopped")
	return nil
}
