// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package udrconf renders the UDR workload's configuration artifact.
// The output format is fixed: consumers parse it positionally, so the
// template below is the contract and must not be reflowed. Rendering
// is deterministic; identical params yield identical bytes.
package udrconf

import (
	"bytes"
	"text/template"

	"github.com/juju/errors"

	"github.com/canonical/oai-udr-operator/charmlib/endpoint"
	"github.com/canonical/oai-udr-operator/internal/charmconfig"
)

// Workload filesystem locations.
const (
	BaseConfigPath = "/openair-udr/etc"
	ConfigFileName = "udr.conf"

	// ConfigPath is where the rendered artifact lands in the workload
	// container.
	ConfigPath = BaseConfigPath + "/" + ConfigFileName
)

// Database holds the database access values rendered into the MYSQL
// section.
type Database struct {
	Server   string
	Username string
	Password string
	Name     string
}

// Validate returns an error if any access value is missing.
func (d Database) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"server", d.Server},
		{"username", d.Username},
		{"password", d.Password},
		{"name", d.Name},
	} {
		if f.value == "" {
			return errors.NotValidf("empty database %s", f.name)
		}
	}
	return nil
}

// Params collects every input of the configuration artifact.
type Params struct {
	Config   charmconfig.Config
	NRF      endpoint.Record
	Database Database
}

// Validate returns an error if the params cannot render a complete
// artifact.
func (p Params) Validate() error {
	if err := p.Config.Validate(); err != nil {
		return errors.Trace(err)
	}
	if !p.NRF.Complete() {
		return errors.NotValidf("incomplete nrf endpoint record")
	}
	if err := p.Database.Validate(); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Render returns the configuration artifact for the given params.
func Render(p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", errors.Trace(err)
	}
	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, p); err != nil {
		return "", errors.Trace(err)
	}
	return buf.String(), nil
}

var configTemplate = template.Must(template.New(ConfigFileName).Parse(
	`UDR =
{
  INSTANCE_ID = {{.Config.Instance}};            # 0 is the default
  PID_DIRECTORY = "{{.Config.PIDDirectory}}";   # /var/run is the default
  UDR_NAME = "{{.Config.UDRName}}";


  SUPPORT_FEATURES:{
    USE_FQDN_DNS = "{{.Config.UseFQDNDNS}}";    # Set to yes if UDR will relying on a DNS to resolve UDM's FQDN
    REGISTER_NRF = "{{.Config.RegisterNRF}}";    # Set to yes if UDR resgisters to an NRF
    USE_HTTP2    = "{{.Config.UseHTTP2}}";       # Set to yes to enable HTTP2 for UDR server
    DATABASE     = "MySQL";             # Set to 'MySQL'/'Cassandra' to use MySQL/Cassandra
  };

  INTERFACES:
  {
    # NUDR Interface (SBI)
    NUDR:
    {
      INTERFACE_NAME = "{{.Config.InterfaceName}}";
      IPV4_ADDRESS   = "read";
      PORT           = {{.Config.Port}};         # Default value: 80
      HTTP2_PORT     = {{.Config.HTTP2Port}};   # Default value: 443
      API_VERSION    = "{{.Config.APIVersion}}";
    };
  };

  NRF:
  {
    IPV4_ADDRESS = "{{.NRF.IPv4Address}}";
    PORT         = {{.NRF.Port}};            # Default value: 80
    API_VERSION  = "{{.NRF.APIVersion}}";
    FQDN         = "{{.NRF.FQDN}}";
  };

  MYSQL:
  {
    # MySQL options
    MYSQL_SERVER = "{{.Database.Server}}";
    MYSQL_USER   = "{{.Database.Username}}";
    MYSQL_PASS   = "{{.Database.Password}}";
    MYSQL_DB     = "{{.Database.Name}}";
    DB_CONNECTION_TIMEOUT = 300;           # Reset the connection to the DB after expiring the timeout (in second)
  };
};`))
