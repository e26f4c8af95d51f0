/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package version

import (
	"runtime"
	"runtime/debug"
	"strconv"
	"time"
)

const (
	DevelopmentVersion = "dev"

	dapLibraryModule = "github.com/google/go-dap"
)

// Set at build time with -ldflags "-X ..."
var (
	ProductVersion = DevelopmentVersion
	CommitHash     = ""
	BuildTimestamp = ""
)

type VersionOutput struct {
	Version    string     `json:"version"`
	CommitHash string     `json:"commitHash,omitempty"`
	BuildTime  *time.Time `json:"buildTimestamp,omitempty"`
	GoVersion  string     `json:"goVersion"`

	// Version of the DAP protocol library the program was built with.
	DAPLibraryVersion string `json:"dapLibraryVersion,omitempty"`
}

func Version() VersionOutput {
	productVersion := ProductVersion
	if productVersion == "" {
		productVersion = DevelopmentVersion
	}

	return VersionOutput{
		Version:           productVersion,
		CommitHash:        CommitHash,
		BuildTime:         parseBuildTimestamp(BuildTimestamp),
		GoVersion:         runtime.Version(),
		DAPLibraryVersion: dependencyVersion(dapLibraryModule),
	}
}

// The build timestamp is either Unix seconds or an RFC 3339 time.
func parseBuildTimestamp(ts string) *time.Time {
	if ts == "" {
		return nil
	}

	if seconds, err := strconv.ParseInt(ts, 10, 64); err == nil {
		t := time.Unix(seconds, 0).UTC()
		return &t
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return &t
	}
	return nil
}

func dependencyVersion(module string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range info.Deps {
		if dep.Path == module {
			if dep.Replace != nil {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return ""
}
