/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package osutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvVarString returns the trimmed value of an environment variable.
// The second result is false if the variable is not set or is blank.
func EnvVarString(varName string) (string, bool) {
	value, found := os.LookupEnv(varName)
	if !found || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// EnvVarIntVal parses an integer environment variable. Blank or unset variables are reported as not found;
// values that are not integers are reported as errors.
func EnvVarIntVal(varName string) (int, bool, error) {
	value, found := EnvVarString(varName)
	if !found {
		return 0, false, nil
	}

	val, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, true, fmt.Errorf("environment variable %s: '%s' is not a valid integer", varName, value)
	}

	return int(val), true, nil
}

func EnvVarDurationVal(varName string) (time.Duration, bool, error) {
	value, found := EnvVarString(varName)
	if !found {
		return 0, false, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return 0, true, fmt.Errorf("environment variable %s: '%s' is not a valid duration", varName, value)
	}

	return val, true, nil
}

// EnvVarStringSlice splits a comma-separated environment variable, dropping empty elements.
func EnvVarStringSlice(varName string) ([]string, bool) {
	value, found := EnvVarString(varName)
	if !found {
		return nil, false
	}

	var values []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values, true
}
