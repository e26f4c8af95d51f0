/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package resiliency

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
)

// ErrPanicked is wrapped by every error produced from a recovered panic.
var ErrPanicked = errors.New("goroutine panicked")

// Logs a panic value and associated call stack and returns it as an error.
// The returned error is permanent, so a RetryGet factory that recovers a panic stops the retry loop.
func MakePanicError(panicVal any, log logr.Logger) error {
	if panicVal == nil {
		return nil
	}

	var panicErr error
	if valErr, isError := panicVal.(error); isError {
		panicErr = fmt.Errorf("%w: %w", ErrPanicked, valErr)
	} else {
		panicErr = fmt.Errorf("%w: %v", ErrPanicked, panicVal)
	}

	log.Error(panicErr, "A goroutine ended prematurely due to panic", "stack", string(debug.Stack()))

	return backoff.Permanent(panicErr)
}

// CatchPanic runs fn and turns a panic raised by it into an error.
// Long-running goroutines use it so that a bug in message processing ends the session, not the process.
func CatchPanic(log logr.Logger, fn func() error) (err error) {
	defer func() {
		if panicErr := MakePanicError(recover(), log); panicErr != nil {
			err = panicErr
		}
	}()

	return fn()
}
