/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dapmirror

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
	"github.com/microsoft/dapmirror/pkg/osutil"
)

const (
	DefaultEndpoint    = "ws://127.0.0.1:4711/debug-server"
	DefaultAdapterID   = "dapmirror"
	DefaultDialTimeout = 10 * time.Second

	// Environment variables that override the configuration profile.
	DAPMIRROR_ENDPOINT          = "DAPMIRROR_ENDPOINT"
	DAPMIRROR_TRANSPORT         = "DAPMIRROR_TRANSPORT"
	DAPMIRROR_ADAPTER_ID        = "DAPMIRROR_ADAPTER_ID"
	DAPMIRROR_DIAL_TIMEOUT      = "DAPMIRROR_DIAL_TIMEOUT"
	DAPMIRROR_EXPAND_DEPTH      = "DAPMIRROR_EXPAND_DEPTH"
	DAPMIRROR_EXCEPTION_FILTERS = "DAPMIRROR_EXCEPTION_FILTERS" // Comma-separated

	endpointFlagName        = "endpoint"
	transportFlagName       = "transport"
	adapterIDFlagName       = "adapter-id"
	dialTimeoutFlagName     = "dial-timeout"
	expandFlagName          = "expand"
	exceptionFilterFlagName = "exception-filter"
	configFileFlagName      = "config"
	envFileFlagName         = "env-file"
)

// Config describes how to reach the debug adapter and what to do once attached.
type Config struct {
	Endpoint         string                    `yaml:"endpoint"`
	Transport        internaldap.TransportKind `yaml:"transport"`
	AdapterID        string                    `yaml:"adapterId"`
	DialTimeout      time.Duration             `yaml:"dialTimeout"`
	ExpandDepth      int                       `yaml:"expandDepth"`
	ExceptionFilters []string                  `yaml:"exceptionFilters"`
}

func DefaultConfig() Config {
	return Config{
		Endpoint:    DefaultEndpoint,
		Transport:   internaldap.TransportWebSocket,
		AdapterID:   DefaultAdapterID,
		DialTimeout: DefaultDialTimeout,
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.Endpoint == "" {
		errs = append(errs, fmt.Errorf("the debug adapter endpoint must not be empty"))
	}
	if transportErr := c.Transport.Validate(); transportErr != nil {
		errs = append(errs, transportErr)
	}
	if c.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("the dial timeout must be positive (was %s)", c.DialTimeout))
	}
	if c.ExpandDepth < 0 {
		errs = append(errs, fmt.Errorf("the expand depth must not be negative (was %d)", c.ExpandDepth))
	}

	return errors.Join(errs...)
}

// ConfigFlags holds the values of the command-line flags that affect the configuration.
type ConfigFlags struct {
	fs *pflag.FlagSet

	endpoint         string
	transport        string
	adapterID        string
	dialTimeout      time.Duration
	expandDepth      int
	exceptionFilters []string
	configFile       string
	envFile          string
}

// AddConfigFlags registers the configuration flags with the flag set.
func AddConfigFlags(fs *pflag.FlagSet) *ConfigFlags {
	cf := &ConfigFlags{fs: fs}

	fs.StringVar(&cf.endpoint, endpointFlagName, "", fmt.Sprintf("Debug adapter endpoint, e.g. ws://host:port/debug-server or tcp://host:port (default %s)", DefaultEndpoint))
	fs.StringVar(&cf.transport, transportFlagName, "", "Transport to use: 'websocket' or 'tcp' (default websocket)")
	fs.StringVar(&cf.adapterID, adapterIDFlagName, "", fmt.Sprintf("Adapter ID sent with the initialize request (default %s)", DefaultAdapterID))
	fs.DurationVar(&cf.dialTimeout, dialTimeoutFlagName, 0, fmt.Sprintf("How long to keep trying to connect to the debug adapter (default %s)", DefaultDialTimeout))
	fs.IntVar(&cf.expandDepth, expandFlagName, 0, "Automatically load the state of stopped threads down to this depth: 1 = stack frames, 2 = scopes of the top frame, 3 and more = variables")
	fs.StringSliceVar(&cf.exceptionFilters, exceptionFilterFlagName, nil, "Exception breakpoint filter to enable instead of all the filters the debug adapter offers (can be repeated)")
	fs.StringVar(&cf.configFile, configFileFlagName, "", "Path to a YAML configuration profile")
	fs.StringVar(&cf.envFile, envFileFlagName, "", "Path to a .env file with DAPMIRROR_* settings")

	return cf
}

// Resolve computes the effective configuration. Sources are applied in this order, later ones winning:
// defaults, YAML profile, .env file, DAPMIRROR_* environment variables, explicit flags.
func (cf *ConfigFlags) Resolve() (Config, error) {
	cfg := DefaultConfig()

	if cf.configFile != "" {
		if profileErr := loadProfile(cf.configFile, &cfg); profileErr != nil {
			return Config{}, profileErr
		}
	}

	if cf.envFile != "" {
		// Variables that are already set in the process environment take precedence.
		if envErr := godotenv.Load(cf.envFile); envErr != nil {
			return Config{}, fmt.Errorf("could not load environment file '%s': %w", cf.envFile, envErr)
		}
	}

	if envErr := applyEnvironment(&cfg); envErr != nil {
		return Config{}, envErr
	}

	cf.applyFlags(&cfg)

	if validationErr := cfg.Validate(); validationErr != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", validationErr)
	}
	return cfg, nil
}

func loadProfile(path string, cfg *Config) error {
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return fmt.Errorf("could not read configuration profile: %w", readErr)
	}

	// Fields missing from the profile keep their current values.
	if unmarshalErr := yaml.Unmarshal(content, cfg); unmarshalErr != nil {
		return fmt.Errorf("configuration profile '%s' is invalid: %w", path, unmarshalErr)
	}
	return nil
}

func applyEnvironment(cfg *Config) error {
	if endpoint, found := osutil.EnvVarString(DAPMIRROR_ENDPOINT); found {
		cfg.Endpoint = endpoint
	}
	if transport, found := osutil.EnvVarString(DAPMIRROR_TRANSPORT); found {
		cfg.Transport = internaldap.TransportKind(transport)
	}
	if adapterID, found := osutil.EnvVarString(DAPMIRROR_ADAPTER_ID); found {
		cfg.AdapterID = adapterID
	}
	if filters, found := osutil.EnvVarStringSlice(DAPMIRROR_EXCEPTION_FILTERS); found {
		cfg.ExceptionFilters = filters
	}

	timeout, found, timeoutErr := osutil.EnvVarDurationVal(DAPMIRROR_DIAL_TIMEOUT)
	if timeoutErr != nil {
		return timeoutErr
	} else if found {
		cfg.DialTimeout = timeout
	}

	depth, found, depthErr := osutil.EnvVarIntVal(DAPMIRROR_EXPAND_DEPTH)
	if depthErr != nil {
		return depthErr
	} else if found {
		cfg.ExpandDepth = depth
	}

	return nil
}

func (cf *ConfigFlags) applyFlags(cfg *Config) {
	if cf.fs.Changed(endpointFlagName) {
		cfg.Endpoint = cf.endpoint
	}
	if cf.fs.Changed(transportFlagName) {
		cfg.Transport = internaldap.TransportKind(cf.transport)
	}
	if cf.fs.Changed(adapterIDFlagName) {
		cfg.AdapterID = cf.adapterID
	}
	if cf.fs.Changed(dialTimeoutFlagName) {
		cfg.DialTimeout = cf.dialTimeout
	}
	if cf.fs.Changed(expandFlagName) {
		cfg.ExpandDepth = cf.expandDepth
	}
	if cf.fs.Changed(exceptionFilterFlagName) {
		cfg.ExceptionFilters = cf.exceptionFilters
	}
}
