package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"
)

// Overrides the timeout of every test context (in minutes). Useful when stepping through tests in a debugger.
const testContextTimeoutEnvVar = "DAPMIRROR_TEST_CONTEXT_TIMEOUT"

// GetTestContext returns a context that expires after testTimeout, or when the test deadline is reached,
// whichever comes first. Zero testTimeout means "only the test deadline, if any".
func GetTestContext(t *testing.T, testTimeout time.Duration) (context.Context, context.CancelFunc) {
	timeoutStr, found := os.LookupEnv(testContextTimeoutEnvVar)
	if found {
		timeout, err := strconv.ParseUint(timeoutStr, 10, 16)
		if err != nil {
			panic(fmt.Sprintf("Context timeout value '%s' is invalid: %s", timeoutStr, err.Error()))
		}
		return context.WithTimeout(context.Background(), time.Duration(timeout)*time.Minute)
	}

	deadline, haveDeadline := t.Deadline()

	switch {
	case !haveDeadline && testTimeout == 0:
		return context.WithCancel(context.Background())

	case !haveDeadline:
		return context.WithTimeout(context.Background(), testTimeout)

	case testTimeout == 0:
		return context.WithDeadline(context.Background(), deadline)

	default:
		// Take shorter of the two deadlines
		testDeadline := time.Now().Add(testTimeout)
		if testDeadline.Before(deadline) {
			deadline = testDeadline
		}
		return context.WithDeadline(context.Background(), deadline)
	}
}
