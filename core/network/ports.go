// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package network holds the static network exposure model for the
// managed workload: the service ports declared to the platform. Port
// declarations are not a reconciliation decision; they are applied
// idempotently regardless of workload status.
package network

import (
	"fmt"

	"github.com/juju/errors"
)

// ServicePort declares one exposed port of the managed service.
type ServicePort struct {
	// Name distinguishes the port in the platform's service object.
	Name string `yaml:"name"`

	// Port is the externally visible port.
	Port int `yaml:"port"`

	// TargetPort is the port the workload listens on. Zero means the
	// same as Port.
	TargetPort int `yaml:"target-port,omitempty"`

	// Protocol is "TCP" or "UDP"; empty defaults to "TCP".
	Protocol string `yaml:"protocol,omitempty"`
}

// Validate returns an error if the declaration is not usable.
func (p ServicePort) Validate() error {
	if p.Name == "" {
		return errors.NotValidf("service port without name")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.NotValidf("port %d", p.Port)
	}
	switch p.Protocol {
	case "", "TCP", "UDP":
	default:
		return errors.NotValidf("protocol %q", p.Protocol)
	}
	return nil
}

// WithDefaults returns the declaration with zero fields filled in.
func (p ServicePort) WithDefaults() ServicePort {
	if p.TargetPort == 0 {
		p.TargetPort = p.Port
	}
	if p.Protocol == "" {
		p.Protocol = "TCP"
	}
	return p
}

// String implements fmt.Stringer.
func (p ServicePort) String() string {
	p = p.WithDefaults()
	return fmt.Sprintf("%s:%d/%s", p.Name, p.Port, p.Protocol)
}
