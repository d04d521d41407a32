// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package charmconfig defines the operator's configuration options and
// their defaults. Options arrive as loosely-typed attributes from the
// model; they are coerced through a schema before use.
package charmconfig

import (
	"strconv"

	"github.com/juju/errors"
	"github.com/juju/schema"

	"github.com/canonical/oai-udr-operator/core/network"
)

// Option keys.
const (
	InstanceKey      = "instance"
	PIDDirectoryKey  = "pid-directory"
	UDRNameKey       = "udr-name"
	UseFQDNDNSKey    = "use-fqdn-dns"
	RegisterNRFKey   = "register-nrf"
	UseHTTP2Key      = "use-http2"
	InterfaceNameKey = "nudr-interface-name"
	PortKey          = "nudr-interface-port"
	HTTP2PortKey     = "nudr-interface-http2-port"
	APIVersionKey    = "nudr-interface-api-version"
	DatabaseNameKey  = "database-name"
)

var configChecker = schema.FieldMap(schema.Fields{
	InstanceKey:      schema.String(),
	PIDDirectoryKey:  schema.String(),
	UDRNameKey:       schema.String(),
	UseFQDNDNSKey:    schema.String(),
	RegisterNRFKey:   schema.String(),
	UseHTTP2Key:      schema.String(),
	InterfaceNameKey: schema.String(),
	PortKey:          schema.String(),
	HTTP2PortKey:     schema.String(),
	APIVersionKey:    schema.String(),
	DatabaseNameKey:  schema.String(),
}, schema.Defaults{
	InstanceKey:      "0",
	PIDDirectoryKey:  "/var/run",
	UDRNameKey:       "oai-udr",
	UseFQDNDNSKey:    "yes",
	RegisterNRFKey:   "no",
	UseHTTP2Key:      "no",
	InterfaceNameKey: "eth0",
	PortKey:          "80",
	HTTP2PortKey:     "8080",
	APIVersionKey:    "v1",
	DatabaseNameKey:  "oai_db",
})

// Config holds the coerced operator configuration. Ports are kept as
// strings: the workload configuration renders them verbatim, and only
// the declared service ports need them as integers.
type Config struct {
	Instance      string
	PIDDirectory  string
	UDRName       string
	UseFQDNDNS    string
	RegisterNRF   string
	UseHTTP2      string
	InterfaceName string
	Port          string
	HTTP2Port     string
	APIVersion    string
	DatabaseName  string
}

// Parse coerces raw option attributes into a Config, filling defaults
// for absent keys and rejecting unknown ones.
func Parse(attrs map[string]interface{}) (Config, error) {
	out, err := configChecker.Coerce(attrs, nil)
	if err != nil {
		return Config{}, errors.Annotate(err, "invalid udr configuration")
	}
	m := out.(map[string]interface{})
	cfg := Config{
		Instance:      m[InstanceKey].(string),
		PIDDirectory:  m[PIDDirectoryKey].(string),
		UDRName:       m[UDRNameKey].(string),
		UseFQDNDNS:    m[UseFQDNDNSKey].(string),
		RegisterNRF:   m[RegisterNRFKey].(string),
		UseHTTP2:      m[UseHTTP2Key].(string),
		InterfaceName: m[InterfaceNameKey].(string),
		Port:          m[PortKey].(string),
		HTTP2Port:     m[HTTP2PortKey].(string),
		APIVersion:    m[APIVersionKey].(string),
		DatabaseName:  m[DatabaseNameKey].(string),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Trace(err)
	}
	return cfg, nil
}

// Default returns the configuration with every option at its default.
func Default() Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate returns an error if the configuration cannot drive the
// workload.
func (c Config) Validate() error {
	for _, opt := range []struct{ key, value string }{
		{UseFQDNDNSKey, c.UseFQDNDNS},
		{RegisterNRFKey, c.RegisterNRF},
		{UseHTTP2Key, c.UseHTTP2},
	} {
		if opt.value != "yes" && opt.value != "no" {
			return errors.NotValidf("%s %q", opt.key, opt.value)
		}
	}
	for _, opt := range []struct{ key, value string }{
		{PortKey, c.Port},
		{HTTP2PortKey, c.HTTP2Port},
	} {
		if _, err := strconv.Atoi(opt.value); err != nil {
			return errors.NotValidf("%s %q", opt.key, opt.value)
		}
	}
	if c.UDRName == "" {
		return errors.NotValidf("empty %s", UDRNameKey)
	}
	if c.DatabaseName == "" {
		return errors.NotValidf("empty %s", DatabaseNameKey)
	}
	return nil
}

// Environment returns the configuration as a flat environment variable
// map, one variable per option, keyed by the upper-cased option name.
// Standalone deployments hand this to the workload in place of a
// rendered configuration file.
func (c Config) Environment() map[string]string {
	return map[string]string{
		"INSTANCE":                   c.Instance,
		"PID_DIRECTORY":              c.PIDDirectory,
		"UDR_NAME":                   c.UDRName,
		"USE_FQDN_DNS":               c.UseFQDNDNS,
		"REGISTER_NRF":               c.RegisterNRF,
		"USE_HTTP2":                  c.UseHTTP2,
		"NUDR_INTERFACE_NAME":        c.InterfaceName,
		"NUDR_INTERFACE_PORT":        c.Port,
		"NUDR_INTERFACE_HTTP2_PORT":  c.HTTP2Port,
		"NUDR_INTERFACE_API_VERSION": c.APIVersion,
		"DATABASE_NAME":              c.DatabaseName,
	}
}

// ServicePorts returns the ports to declare for the workload service,
// one per configured interface port.
func (c Config) ServicePorts() ([]network.ServicePort, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	port, _ := strconv.Atoi(c.Port)
	http2, _ := strconv.Atoi(c.HTTP2Port)
	return []network.ServicePort{
		network.ServicePort{Name: "http1", Port: port}.WithDefaults(),
		network.ServicePort{Name: "http2", Port: http2}.WithDefaults(),
	}, nil
}
