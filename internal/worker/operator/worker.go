// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package operator

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"
	"github.com/kr/pretty"

	"github.com/canonical/oai-udr-operator/charmlib/fivegudr"
	"github.com/canonical/oai-udr-operator/core/relation"
	"github.com/canonical/oai-udr-operator/core/status"
	"github.com/canonical/oai-udr-operator/internal/charmconfig"
	"github.com/canonical/oai-udr-operator/internal/pebbleclient"
	"github.com/canonical/oai-udr-operator/internal/statedir"
	"github.com/canonical/oai-udr-operator/internal/udrconf"
)

// Mode selects which resolver drives reconciliation.
type Mode string

const (
	// ModeRelations renders the workload configuration from relation
	// data. This is the default.
	ModeRelations Mode = "relations"

	// ModeStandalone expects the workload configuration to be
	// provisioned out of band and mirrors the operator configuration
	// into the service environment instead.
	ModeStandalone Mode = "standalone"
)

// Validate returns an error for an unknown mode.
func (m Mode) Validate() error {
	switch m {
	case ModeRelations, ModeStandalone:
		return nil
	}
	return errors.NotValidf("mode %q", m)
}

// Runtime is the surface of the workload runtime the worker drives.
type Runtime interface {
	CanConnect() bool
	Push(path, content string) error
	Exists(path string) (bool, error)
	AddLayer(label string, layer pebbleclient.Layer) error
	Replan() error
	Restart(names ...string) error
	ServiceRunning(name string) (bool, error)
}

// ChangeWatcher delivers state directory changes.
type ChangeWatcher interface {
	worker.Worker
	Changes() <-chan statedir.Change
}

// Config holds the dependencies and options of the operator worker.
type Config struct {
	// Dir is the state directory shared with the platform.
	Dir *statedir.StateDir

	// NewWatcher starts a watcher over the state directory.
	NewWatcher func() (ChangeWatcher, error)

	// Runtime drives the workload runtime.
	Runtime Runtime

	// Clock stamps statuses and schedules redelivery.
	Clock clock.Clock

	// Application and Model name this deployment; they qualify the
	// advertised cluster DNS name.
	Application string
	Model       string

	// Mode selects the resolver.
	Mode Mode

	// RequeueDelay is how long a deferred event waits before it is
	// redelivered.
	RequeueDelay time.Duration

	// ReadyPollInterval is how often the runtime socket is probed
	// after a pass found it unreachable.
	ReadyPollInterval time.Duration
}

// Validate returns an error if the worker cannot be started with this
// configuration.
func (config Config) Validate() error {
	if config.Dir == nil {
		return errors.NotValidf("nil Dir")
	}
	if config.NewWatcher == nil {
		return errors.NotValidf("nil NewWatcher")
	}
	if config.Runtime == nil {
		return errors.NotValidf("nil Runtime")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Application == "" {
		return errors.NotValidf("empty Application")
	}
	if config.Model == "" {
		return errors.NotValidf("empty Model")
	}
	if err := config.Mode.Validate(); err != nil {
		return errors.Trace(err)
	}
	if config.RequeueDelay <= 0 {
		return errors.NotValidf("non-positive RequeueDelay")
	}
	if config.ReadyPollInterval <= 0 {
		return errors.NotValidf("non-positive ReadyPollInterval")
	}
	return nil
}

// handler reacts to one event against a fresh snapshot.
type handler func(Event, Snapshot) (Decision, error)

// Operator is the reconciliation worker. It owns a watcher over the
// state directory, maps every change to an event, and runs each event
// through the dispatch table on a single goroutine.
type Operator struct {
	catacomb catacomb.Catacomb
	config   Config
	provider *fivegudr.Provider
	handlers map[Kind]handler

	// greeted tracks fiveg-udr relation ids already answered, so that
	// a change on an unseen id is treated as a join.
	greeted set.Ints

	// deferred holds events awaiting redelivery; redeliver fires when
	// they are due.
	deferred  []Event
	redeliver <-chan time.Time

	// readyPoll fires while the runtime is being probed for
	// reachability.
	readyPoll <-chan time.Time

	// reported is the last status written, kept to avoid rewriting an
	// unchanged status with a fresh timestamp.
	reported status.StatusInfo
}

// NewOperator validates the configuration and starts the worker.
func NewOperator(config Config) (*Operator, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	op := &Operator{
		config:   config,
		provider: fivegudr.NewProvider(config.Dir),
		greeted:  set.NewInts(),
	}
	op.handlers = map[Kind]handler{
		ConfigChanged:      op.reconcile,
		NRFRelationChanged: op.reconcile,
		DatabaseChanged:    op.reconcile,
		LeadershipChanged:  op.reconcile,
		WorkloadReady:      op.reconcile,
		UDRRelationJoined:  op.join,
	}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &op.catacomb,
		Work: op.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return op, nil
}

// Kill is part of the worker.Worker interface.
func (op *Operator) Kill() {
	op.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (op *Operator) Wait() error {
	return op.catacomb.Wait()
}

func (op *Operator) loop() error {
	watcher, err := op.config.NewWatcher()
	if err != nil {
		return errors.Trace(err)
	}
	if err := op.catacomb.Add(watcher); err != nil {
		return errors.Trace(err)
	}

	if info, err := op.config.Dir.ReadStatus(); err == nil {
		op.reported = info
	} else if !errors.Is(err, errors.NotFound) {
		return errors.Trace(err)
	}

	// An initial pass brings the workload in line with whatever
	// accumulated while the operator was down. Consumers present at
	// startup are treated as newly joined: answering them again is
	// idempotent, missing one is not recoverable.
	if err := op.process(Event{Kind: ConfigChanged}); err != nil {
		return errors.Trace(err)
	}
	startup, err := op.config.Dir.Relations()
	if err != nil {
		return errors.Trace(err)
	}
	for _, id := range startup.IDs(relation.FiveGUDR) {
		op.greeted.Add(int(id))
		if err := op.process(Event{Kind: UDRRelationJoined, RelationID: id}); err != nil {
			return errors.Trace(err)
		}
	}

	for {
		select {
		case <-op.catacomb.Dying():
			return op.catacomb.ErrDying()

		case change, ok := <-watcher.Changes():
			if !ok {
				return errors.New("state watcher closed its channel")
			}
			events, err := op.translate(change)
			if err != nil {
				return errors.Trace(err)
			}
			for _, event := range events {
				if err := op.process(event); err != nil {
					return errors.Trace(err)
				}
			}

		case <-op.redeliver:
			op.redeliver = nil
			queued := op.deferred
			op.deferred = nil
			for _, event := range queued {
				if err := op.process(event); err != nil {
					return errors.Trace(err)
				}
			}

		case <-op.readyPoll:
			op.readyPoll = nil
			if !op.config.Runtime.CanConnect() {
				op.readyPoll = op.config.Clock.After(op.config.ReadyPollInterval)
				continue
			}
			if err := op.process(Event{Kind: WorkloadReady}); err != nil {
				return errors.Trace(err)
			}
		}
	}
}

// translate maps a state directory change to the events it implies. A
// change on the provided endpoint is only an event when a new consumer
// appears; changes to data a consumer wrote are of no interest here.
func (op *Operator) translate(change statedir.Change) ([]Event, error) {
	switch change.Kind {
	case statedir.ConfigChanged:
		return []Event{{Kind: ConfigChanged}}, nil
	case statedir.LeadershipChanged:
		return []Event{{Kind: LeadershipChanged}}, nil
	case statedir.RelationChanged:
	default:
		return nil, errors.NotValidf("change kind %q", change.Kind)
	}
	switch change.Endpoint {
	case relation.FiveGNRF:
		return []Event{{Kind: NRFRelationChanged}}, nil
	case relation.Database:
		return []Event{{Kind: DatabaseChanged}}, nil
	case relation.FiveGUDR:
		current, err := op.config.Dir.Relations()
		if err != nil {
			return nil, errors.Trace(err)
		}
		if _, err := current.Instance(change.ID); errors.Is(err, errors.NotFound) {
			op.greeted.Remove(int(change.ID))
			return nil, nil
		}
		if op.greeted.Contains(int(change.ID)) {
			return nil, nil
		}
		op.greeted.Add(int(change.ID))
		return []Event{{Kind: UDRRelationJoined, RelationID: change.ID}}, nil
	}
	logger.Debugf("ignoring change on unknown endpoint %q", change.Endpoint)
	return nil, nil
}

// process runs one event through the dispatch table: build a snapshot,
// decide, execute the effects, record the status, and requeue the
// event if the handler deferred it.
func (op *Operator) process(event Event) error {
	handle, ok := op.handlers[event.Kind]
	if !ok {
		return errors.NotFoundf("handler for event %q", event.Kind)
	}
	if event.Kind == ConfigChanged {
		if err := op.declarePorts(); err != nil {
			return errors.Trace(err)
		}
	}
	snap, err := op.snapshot()
	if err != nil {
		return errors.Trace(err)
	}
	if logger.IsTraceEnabled() {
		logger.Tracef("snapshot for %s: %# v", event, pretty.Formatter(snap))
	}
	if !snap.RuntimeReachable && op.readyPoll == nil {
		op.readyPoll = op.config.Clock.After(op.config.ReadyPollInterval)
	}
	logger.Debugf("handling %s", event)
	decision, err := handle(event, snap)
	if err != nil {
		return errors.Trace(err)
	}
	if err := op.execute(snap, decision.Effects); err != nil {
		return errors.Trace(err)
	}
	if err := op.report(decision.Status); err != nil {
		return errors.Trace(err)
	}
	if decision.Defer {
		op.requeue(event)
	}
	return nil
}

func (op *Operator) reconcile(_ Event, snap Snapshot) (Decision, error) {
	if op.config.Mode == ModeStandalone {
		return ReconcileStandalone(snap)
	}
	return Reconcile(snap)
}

func (op *Operator) join(event Event, snap Snapshot) (Decision, error) {
	return Join(snap, event.RelationID)
}

// snapshot assembles the full handler input from the state directory
// and the runtime.
func (op *Operator) snapshot() (Snapshot, error) {
	leader, err := op.config.Dir.Leader()
	if err != nil {
		return Snapshot{}, errors.Trace(err)
	}
	cfg, err := op.readConfig()
	if err != nil {
		return Snapshot{}, errors.Trace(err)
	}
	relations, err := op.config.Dir.Relations()
	if err != nil {
		return Snapshot{}, errors.Trace(err)
	}
	snap := Snapshot{
		Application: op.config.Application,
		Model:       op.config.Model,
		Leader:      leader,
		Config:      cfg,
		Relations:   relations,
	}
	if !op.config.Runtime.CanConnect() {
		return snap, nil
	}
	snap.RuntimeReachable = true
	running, err := op.config.Runtime.ServiceRunning(ServiceName)
	if err != nil {
		return Snapshot{}, errors.Trace(err)
	}
	snap.ServiceRunning = running
	if op.config.Mode == ModeStandalone {
		present, err := op.config.Runtime.Exists(udrconf.ConfigPath)
		if err != nil {
			return Snapshot{}, errors.Trace(err)
		}
		snap.ArtifactPresent = present
	}
	return snap, nil
}

func (op *Operator) readConfig() (charmconfig.Config, error) {
	attrs, err := op.config.Dir.ConfigAttrs()
	if err != nil {
		return charmconfig.Config{}, errors.Trace(err)
	}
	cfg, err := charmconfig.Parse(attrs)
	if err != nil {
		return charmconfig.Config{}, errors.Trace(err)
	}
	return cfg, nil
}

// execute runs the decided effects in order, stopping at the first
// error.
func (op *Operator) execute(snap Snapshot, effects []Effect) error {
	for _, effect := range effects {
		if err := op.run(snap, effect); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (op *Operator) run(snap Snapshot, effect Effect) error {
	switch e := effect.(type) {
	case WriteArtifact:
		return errors.Trace(op.config.Runtime.Push(e.Path, e.Content))
	case ApplyLayer:
		if err := op.config.Runtime.AddLayer(e.Label, e.Layer); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(op.config.Runtime.Replan())
	case RestartWorkload:
		return errors.Trace(op.config.Runtime.Restart(e.Services...))
	case PublishEndpoints:
		for _, id := range e.IDs {
			if err := op.provider.Publish(snap.Relations, id, e.Record); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	}
	return errors.NotValidf("effect %T", effect)
}

// report records the decided status. An Unset status leaves the
// recorded one alone, as does deciding the same status again.
func (op *Operator) report(info status.StatusInfo) error {
	if info.Status == "" || info.Status == status.Unset {
		return nil
	}
	if info.Status == op.reported.Status && info.Message == op.reported.Message {
		return nil
	}
	now := op.config.Clock.Now()
	info.Since = &now
	if err := op.config.Dir.WriteStatus(info); err != nil {
		return errors.Trace(err)
	}
	if info.Message != "" {
		logger.Infof("workload status is now %s: %s", info.Status, info.Message)
	} else {
		logger.Infof("workload status is now %s", info.Status)
	}
	op.reported = info
	return nil
}

// requeue schedules an event for redelivery. An event already queued is
// not queued twice.
func (op *Operator) requeue(event Event) {
	for _, queued := range op.deferred {
		if queued == event {
			return
		}
	}
	logger.Debugf("deferring %s for %s", event, op.config.RequeueDelay)
	op.deferred = append(op.deferred, event)
	if op.redeliver == nil {
		op.redeliver = op.config.Clock.After(op.config.RequeueDelay)
	}
}

// declarePorts records the workload's service ports. They are declared
// regardless of the reconciliation outcome and re-declared whenever the
// configuration changes.
func (op *Operator) declarePorts() error {
	cfg, err := op.readConfig()
	if err != nil {
		return errors.Trace(err)
	}
	ports, err := cfg.ServicePorts()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(op.config.Dir.WritePorts(ports))
}
