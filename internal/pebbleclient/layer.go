// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pebbleclient

import (
	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// Service override and startup modes used in process layers.
const (
	OverrideReplace = "replace"
	StartupEnabled  = "enabled"
)

// Layer is a process-layer declaration pushed into the workload's
// plan. Pushing the same layer twice leaves the plan unchanged.
type Layer struct {
	Summary     string             `yaml:"summary"`
	Description string             `yaml:"description"`
	Services    map[string]Service `yaml:"services"`
}

// Service declares one supervised process within a layer.
type Service struct {
	Override    string            `yaml:"override"`
	Summary     string            `yaml:"summary"`
	Command     string            `yaml:"command"`
	Startup     string            `yaml:"startup"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

// Validate returns an error if the layer cannot be applied.
func (l Layer) Validate() error {
	if len(l.Services) == 0 {
		return errors.NotValidf("layer without services")
	}
	for name, svc := range l.Services {
		if svc.Command == "" {
			return errors.NotValidf("service %q without command", name)
		}
		if svc.Override != OverrideReplace {
			return errors.NotValidf("service %q override %q", name, svc.Override)
		}
	}
	return nil
}

// MarshalBytes returns the wire form of the layer.
func (l Layer) MarshalBytes() ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	data, err := yaml.Marshal(l)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return data, nil
}
