// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd160x

import (
	"errors"
	"fmt"
)

const packageName = "lcd160x"

var (
	// ErrInvalidArgument is returned for an out of range row, column,
	// percentage or precision, and for empty text. It is always returned
	// before the expander is touched.
	ErrInvalidArgument = errors.New(packageName + ": invalid argument")
	// ErrNotInitialized is returned when the expander is not ready, or when an
	// operation is attempted on a display that has not completed Init.
	ErrNotInitialized = errors.New(packageName + ": not initialized")
	// ErrTransport matches any *TransportError with errors.Is.
	ErrTransport = errors.New(packageName + ": transport failure")
)

// TransportError is returned when an expander write fails part way through
// an operation. The controller is left in an unspecified state; call Init
// to recover.
type TransportError struct {
	// Op is the public operation that was running, e.g. "PrintText".
	Op string
	// Step is the transmission step that failed, e.g. "enable high".
	Step string
	// Err is the error returned by the expander.
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s: %v", packageName, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s: %v", packageName, e.Op, e.Step, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports ErrTransport as a match so callers don't need errors.As for the
// common case.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func invalidArgument(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, a...)...)
}

// withOp stamps the public operation name on a transport error raised by a
// primitive.
func withOp(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) && te.Op == "" {
		te.Op = op
	}
	return err
}
