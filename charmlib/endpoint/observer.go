// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package endpoint

import (
	"github.com/juju/loggo/v2"

	"github.com/canonical/oai-udr-operator/core/relation"
)

var logger = loggo.GetLogger("udroperator.charmlib.endpoint")

// Observer watches one relation endpoint for the remote role's record
// and raises a level-triggered notification when it becomes complete.
// Re-evaluating unchanged data notifies again with the same record;
// consumers are expected to be idempotent.
type Observer struct {
	endpoint string
	codec    Codec
	notify   []func(Record)
}

// NewObserver returns an Observer over the named endpoint, decoding
// entries published under the given role prefix.
func NewObserver(endpointName, prefix string) *Observer {
	return &Observer{
		endpoint: endpointName,
		codec:    NewCodec(prefix),
	}
}

// Endpoint returns the watched endpoint name.
func (o *Observer) Endpoint() string {
	return o.endpoint
}

// NotifyAvailable registers fn to be invoked with the decoded record
// whenever a change evaluation finds it complete.
func (o *Observer) NotifyAvailable(fn func(Record)) {
	o.notify = append(o.notify, fn)
}

// HandleChanged evaluates a relation change on the watched endpoint.
// A change with no remote application is logged and otherwise ignored.
// Incomplete data is reported at debug level, naming what is missing.
func (o *Observer) HandleChanged(inst relation.Instance) {
	if inst.Endpoint != o.endpoint {
		return
	}
	if !inst.Joined() {
		logger.Infof("no remote application on relation %d, deferring evaluation", inst.ID)
		return
	}
	rec, ok := o.codec.Decode(inst.RemoteSettings)
	if !ok {
		logger.Debugf("relation %d missing %v", inst.ID, o.codec.Missing(inst.RemoteSettings))
		return
	}
	for _, fn := range o.notify {
		fn(rec)
	}
}

// Get returns the named field from the resolved relation instance on
// the watched endpoint, if published.
func (o *Observer) Get(snap relation.Snapshot, f Field) (string, bool) {
	inst, ok := snap.One(o.endpoint)
	if !ok {
		return "", false
	}
	return inst.RemoteSettings.Get(o.codec.Key(f))
}

// IsAvailable reports whether the named field has been published on
// the resolved relation instance.
func (o *Observer) IsAvailable(snap relation.Snapshot, f Field) bool {
	_, ok := o.Get(snap, f)
	return ok
}

// Record returns the complete remote record from the resolved relation
// instance, or false if the endpoint is unrelated or the record is
// still partial.
func (o *Observer) Record(snap relation.Snapshot) (Record, bool) {
	inst, ok := snap.One(o.endpoint)
	if !ok {
		return Record{}, false
	}
	return o.codec.Decode(inst.RemoteSettings)
}
