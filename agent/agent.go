// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package agent handles the operator agent's own configuration: the
// operational settings read from agent.conf in the data directory, as
// opposed to the model configuration the platform delivers at runtime.
package agent

import (
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/names/v5"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v3"

	"github.com/canonical/oai-udr-operator/internal/pebbleclient"
	"github.com/canonical/oai-udr-operator/internal/worker/operator"
)

// ConfigFileName is the agent configuration file, at the root of the
// data directory.
const ConfigFileName = "agent.conf"

// Defaults for optional settings.
const (
	DefaultPebbleSocket      = "/charm/containers/udr/pebble.socket"
	DefaultLoggingConfig     = "<root>=INFO"
	DefaultRequeueDelay      = 5 * time.Second
	DefaultReadyPollInterval = 2 * time.Second
	DefaultChangeTimeout     = 30 * time.Second
)

// Duration is a time.Duration that reads and writes as a string such
// as "5s".
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return errors.Trace(err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.NotValidf("duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the agent configuration held in agent.conf.
type Config struct {
	// Application and Model identify this deployment; they qualify
	// the DNS name the operator advertises.
	Application string `yaml:"application"`
	Model       string `yaml:"model"`

	// PebbleSocket is the workload runtime socket path.
	PebbleSocket string `yaml:"pebble-socket,omitempty"`

	// Mode selects the reconciliation flavour.
	Mode operator.Mode `yaml:"mode,omitempty"`

	// LoggingConfig is a loggo configuration string such as
	// "<root>=INFO;udroperator=DEBUG".
	LoggingConfig string `yaml:"logging-config,omitempty"`

	// RequeueDelay is how long a deferred event waits before it is
	// redelivered.
	RequeueDelay Duration `yaml:"requeue-delay,omitempty"`

	// ReadyPollInterval is how often the runtime socket is probed
	// while unreachable.
	ReadyPollInterval Duration `yaml:"ready-poll-interval,omitempty"`

	// ChangeTimeout bounds how long the agent waits for a runtime
	// change, such as a replan, to finish.
	ChangeTimeout Duration `yaml:"change-timeout,omitempty"`
}

// ReadConfig loads the agent configuration from the data directory,
// fills in defaults and validates the result.
func ReadConfig(dataDir string) (Config, error) {
	path := filepath.Join(dataDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, errors.NotFoundf("agent configuration %q", path)
	}
	if err != nil {
		return Config{}, errors.Annotate(err, "reading agent configuration")
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Annotate(err, "parsing agent configuration")
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return Config{}, errors.Trace(err)
	}
	return config, nil
}

// Write stores the configuration in the data directory.
func (c Config) Write(dataDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Trace(err)
	}
	path := filepath.Join(dataDir, ConfigFileName)
	return errors.Annotate(utils.AtomicWriteFile(path, data, 0600), "writing agent configuration")
}

func (c *Config) applyDefaults() {
	if c.PebbleSocket == "" {
		c.PebbleSocket = DefaultPebbleSocket
	}
	if c.Mode == "" {
		c.Mode = operator.ModeRelations
	}
	if c.LoggingConfig == "" {
		c.LoggingConfig = DefaultLoggingConfig
	}
	if c.RequeueDelay == 0 {
		c.RequeueDelay = Duration(DefaultRequeueDelay)
	}
	if c.ReadyPollInterval == 0 {
		c.ReadyPollInterval = Duration(DefaultReadyPollInterval)
	}
	if c.ChangeTimeout == 0 {
		c.ChangeTimeout = Duration(DefaultChangeTimeout)
	}
}

// Validate returns an error if the configuration cannot run an agent.
func (c Config) Validate() error {
	if !names.IsValidApplication(c.Application) {
		return errors.NotValidf("application name %q", c.Application)
	}
	if !names.IsValidModelName(c.Model) {
		return errors.NotValidf("model name %q", c.Model)
	}
	if err := c.Mode.Validate(); err != nil {
		return errors.Trace(err)
	}
	if c.PebbleSocket == "" {
		return errors.NotValidf("empty pebble-socket")
	}
	if _, err := loggo.ParseConfigString(c.LoggingConfig); err != nil {
		return errors.Annotate(err, "invalid logging-config")
	}
	for _, opt := range []struct {
		key   string
		value Duration
	}{
		{"requeue-delay", c.RequeueDelay},
		{"ready-poll-interval", c.ReadyPollInterval},
		{"change-timeout", c.ChangeTimeout},
	} {
		if opt.value <= 0 {
			return errors.NotValidf("%s %q", opt.key, time.Duration(opt.value).String())
		}
	}
	return nil
}

// PebbleConfig returns the workload runtime client configuration.
func (c Config) PebbleConfig() pebbleclient.Config {
	return pebbleclient.Config{
		Socket:        c.PebbleSocket,
		ChangeTimeout: time.Duration(c.ChangeTimeout),
	}
}
