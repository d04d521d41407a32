// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package operator implements the reconciliation worker that drives the
// UDR workload. Every lifecycle event is mapped to a handler through a
// dispatch table; handlers are pure functions from an input snapshot to
// a decision, and the worker executes the decided effects against the
// workload runtime and the state directory.
package operator

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/canonical/oai-udr-operator/charmlib/database"
	"github.com/canonical/oai-udr-operator/charmlib/endpoint"
	"github.com/canonical/oai-udr-operator/charmlib/fivegnrf"
	"github.com/canonical/oai-udr-operator/core/relation"
	"github.com/canonical/oai-udr-operator/core/status"
	"github.com/canonical/oai-udr-operator/internal/charmconfig"
	"github.com/canonical/oai-udr-operator/internal/pebbleclient"
	"github.com/canonical/oai-udr-operator/internal/udrconf"
)

var logger = loggo.GetLogger("udroperator.worker.operator")

const (
	// ServiceName is the workload service managed by this operator.
	ServiceName = "udr"

	// layerLabel labels the process layer owned by this operator.
	layerLabel = "udr"

	// workloadCommand launches the UDR against the rendered
	// configuration file.
	workloadCommand = "/bin/bash /openair-udr/bin/entrypoint.sh /openair-udr/bin/oai_udr -c " +
		udrconf.ConfigPath + " -o"

	// publishedAddress is the address advertised to fiveg-udr
	// consumers alongside the cluster DNS name.
	publishedAddress = "127.0.0.1"
)

// Status messages reported while a precondition holds reconciliation
// back. Waiting conditions clear on a later event; blocked ones need an
// operator to add the missing relation.
const (
	msgWaitingRuntime     = "Waiting for Pebble in workload container"
	msgNoDatabaseRelation = "Waiting for relation to database to be created"
	msgNoNRFRelation      = "Waiting for relation to NRF to be created"
	msgDatabaseData       = "Waiting for database relation data to be available"
	msgNRFAddress         = "Waiting for NRF IPv4 address to be available in relation data"
	msgArtifactMissing    = "Waiting for config file to be written"
)

// Shared read-only requirers for decoding peer data out of snapshots.
var (
	nrfRequirer = fivegnrf.NewRequirer()
	dbRequirer  = database.NewRequirer()
)

// Snapshot carries every input a handler may read. The worker
// assembles one before each handler call so that handlers stay pure.
type Snapshot struct {
	// Application and Model qualify the workload's cluster DNS name.
	Application string
	Model       string

	// Leader reports whether this replica currently holds leadership.
	Leader bool

	// RuntimeReachable reports whether the workload runtime answers on
	// its socket.
	RuntimeReachable bool

	// ServiceRunning reports whether the workload service is active.
	ServiceRunning bool

	// ArtifactPresent reports whether the workload configuration file
	// already exists in the workload filesystem. Only the standalone
	// resolver consults it.
	ArtifactPresent bool

	// Config is the coerced operator configuration.
	Config charmconfig.Config

	// Relations is the relation state as of the delivered event.
	Relations relation.Snapshot
}

// Effect is one side effect a handler wants executed. Effects run in
// order; execution stops at the first error.
type Effect interface {
	effect()
}

// WriteArtifact writes a file into the workload filesystem.
type WriteArtifact struct {
	Path    string
	Content string
}

// ApplyLayer combines a process layer into the workload plan and
// replans.
type ApplyLayer struct {
	Label string
	Layer pebbleclient.Layer
}

// RestartWorkload restarts the named workload services.
type RestartWorkload struct {
	Services []string
}

// PublishEndpoints writes the provider record into this application's
// side of the given relations.
type PublishEndpoints struct {
	IDs    []relation.ID
	Record endpoint.Record
}

func (WriteArtifact) effect()    {}
func (ApplyLayer) effect()       {}
func (RestartWorkload) effect()  {}
func (PublishEndpoints) effect() {}

// Decision is a handler's outcome: the status to record (Unset means
// leave the recorded status alone), the effects to execute, and whether
// the triggering event must be redelivered after conditions have had a
// chance to change.
type Decision struct {
	Status  status.StatusInfo
	Effects []Effect
	Defer   bool
}

// Reconcile computes the desired workload state for the given inputs.
// Preconditions are checked in a fixed order and the first failing one
// decides the reported status. Once all hold, the workload
// configuration is rendered and pushed, the process layer is applied,
// the service restarted, and, on the leader, the UDR endpoint record is
// published to every fiveg-udr consumer.
func Reconcile(snap Snapshot) (Decision, error) {
	if !snap.RuntimeReachable {
		return Decision{
			Status: status.WaitingStatus(msgWaitingRuntime),
			Defer:  true,
		}, nil
	}
	if !snap.Relations.Established(relation.Database) {
		return Decision{Status: status.BlockedStatus(msgNoDatabaseRelation)}, nil
	}
	if !snap.Relations.Established(relation.FiveGNRF) {
		return Decision{Status: status.BlockedStatus(msgNoNRFRelation)}, nil
	}
	creds, ok := dbRequirer.Credentials(snap.Relations)
	if !ok {
		return Decision{Status: status.WaitingStatus(msgDatabaseData)}, nil
	}
	nrf, ok := nrfRequirer.Record(snap.Relations)
	if !ok {
		return Decision{Status: status.WaitingStatus(msgNRFAddress)}, nil
	}
	content, err := udrconf.Render(udrconf.Params{
		Config: snap.Config,
		NRF:    nrf,
		Database: udrconf.Database{
			Server:   creds.Server(),
			Username: creds.Username,
			Password: creds.Password,
			Name:     snap.Config.DatabaseName,
		},
	})
	if err != nil {
		return Decision{}, errors.Annotate(err, "rendering workload configuration")
	}
	effects := []Effect{
		WriteArtifact{Path: udrconf.ConfigPath, Content: content},
		ApplyLayer{Label: layerLabel, Layer: workloadLayer(nil)},
		RestartWorkload{Services: []string{ServiceName}},
	}
	if publish := broadcast(snap); publish != nil {
		effects = append(effects, *publish)
	}
	return Decision{Status: status.ActiveStatus(), Effects: effects}, nil
}

// ReconcileStandalone is the resolver for deployments whose workload
// configuration is provisioned out of band. The relation and peer-data
// preconditions are replaced by a single check on the configuration
// file's presence, and the process layer mirrors the operator
// configuration into the service environment.
func ReconcileStandalone(snap Snapshot) (Decision, error) {
	if !snap.RuntimeReachable {
		return Decision{
			Status: status.WaitingStatus(msgWaitingRuntime),
			Defer:  true,
		}, nil
	}
	if !snap.ArtifactPresent {
		return Decision{Status: status.WaitingStatus(msgArtifactMissing)}, nil
	}
	effects := []Effect{
		ApplyLayer{Label: layerLabel, Layer: workloadLayer(snap.Config.Environment())},
		RestartWorkload{Services: []string{ServiceName}},
	}
	if publish := broadcast(snap); publish != nil {
		effects = append(effects, *publish)
	}
	return Decision{Status: status.ActiveStatus(), Effects: effects}, nil
}

// Join answers a consumer newly attached to the fiveg-udr relation with
// a publish targeted at that relation alone. Only the leader answers.
// If the workload service has not started yet the event is deferred and
// redelivered; the record is only ever advertised for a serving
// workload.
func Join(snap Snapshot, id relation.ID) (Decision, error) {
	if !snap.Leader {
		return Decision{}, nil
	}
	if !snap.RuntimeReachable || !snap.ServiceRunning {
		logger.Infof("udr service not started yet, deferring publish to relation %d", id)
		return Decision{Defer: true}, nil
	}
	return Decision{Effects: []Effect{
		PublishEndpoints{IDs: []relation.ID{id}, Record: providerRecord(snap)},
	}}, nil
}

// broadcast returns the leader's publish-to-all effect, or nil when
// this replica is a follower or no consumer is related.
func broadcast(snap Snapshot) *PublishEndpoints {
	if !snap.Leader {
		return nil
	}
	ids := snap.Relations.IDs(relation.FiveGUDR)
	if len(ids) == 0 {
		return nil
	}
	return &PublishEndpoints{IDs: ids, Record: providerRecord(snap)}
}

// providerRecord is the endpoint record advertised to consumers.
func providerRecord(snap Snapshot) endpoint.Record {
	return endpoint.Record{
		IPv4Address: publishedAddress,
		FQDN:        fmt.Sprintf("%s.%s.svc.cluster.local", snap.Application, snap.Model),
		Port:        snap.Config.Port,
		APIVersion:  snap.Config.APIVersion,
	}
}

// workloadLayer is the process layer applied to the workload plan. The
// environment bag is only populated for standalone deployments.
func workloadLayer(env map[string]string) pebbleclient.Layer {
	return pebbleclient.Layer{
		Summary:     "udr layer",
		Description: "pebble config layer for udr",
		Services: map[string]pebbleclient.Service{
			ServiceName: {
				Override:    pebbleclient.OverrideReplace,
				Summary:     "udr",
				Command:     workloadCommand,
				Startup:     pebbleclient.StartupEnabled,
				Environment: env,
			},
		},
	}
}
