// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package fivegudr implements both halves of the fiveg-udr relation
// interface. The provider publishes this UDR's endpoint record into
// the application's partition of the relation channel; the requirer is
// the consumer-side observer used by peers such as the UDM.
package fivegudr

import (
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/canonical/oai-udr-operator/charmlib/endpoint"
	"github.com/canonical/oai-udr-operator/core/relation"
)

var logger = loggo.GetLogger("udroperator.charmlib.fivegudr")

// Prefix keys the UDR's entries in the relation channel.
const Prefix = "udr"

// SettingsWriter persists entries into this application's partition of
// a relation channel. Merging is additive: entries not named are left
// in place.
type SettingsWriter interface {
	SetRelationSettings(id relation.ID, settings relation.Settings) error
}

// Provider publishes the UDR endpoint record to consumers. Callers
// are responsible for restricting writes to the leader replica; the
// provider itself only enforces that the target relation exists.
type Provider struct {
	writer SettingsWriter
	codec  endpoint.Codec
}

// NewProvider returns a Provider writing through the given writer.
func NewProvider(writer SettingsWriter) *Provider {
	return &Provider{
		writer: writer,
		codec:  endpoint.NewCodec(Prefix),
	}
}

// Publish writes the record to the identified fiveg-udr relation.
// Publishing to a relation that does not exist is an error, whoever
// asks: the caller named a specific target and the target is gone.
func (p *Provider) Publish(snap relation.Snapshot, id relation.ID, rec endpoint.Record) error {
	inst, err := snap.Instance(id)
	if err != nil {
		return errors.Annotatef(err, "publishing udr endpoint")
	}
	if inst.Endpoint != relation.FiveGUDR {
		return errors.NotValidf("publishing udr endpoint to %q relation %d", inst.Endpoint, id)
	}
	logger.Debugf("publishing udr endpoint record to relation %d", id)
	return errors.Trace(p.writer.SetRelationSettings(id, p.codec.Encode(rec)))
}

// PublishAll writes the record to every current fiveg-udr relation.
// With no consumers related it does nothing.
func (p *Provider) PublishAll(snap relation.Snapshot, rec endpoint.Record) error {
	for _, id := range snap.IDs(relation.FiveGUDR) {
		if err := p.Publish(snap, id, rec); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Requirer consumes the UDR endpoint record published on the fiveg-udr
// relation. It is the half used by a consuming peer, not by the UDR
// operator itself.
type Requirer struct {
	*endpoint.Observer
}

// NewRequirer returns a Requirer over the fiveg-udr endpoint.
func NewRequirer() *Requirer {
	return &Requirer{
		Observer: endpoint.NewObserver(relation.FiveGUDR, Prefix),
	}
}

// IPv4Address returns the UDR's published IPv4 address, if available.
func (r *Requirer) IPv4Address(snap relation.Snapshot) (string, bool) {
	return r.Get(snap, endpoint.IPv4Address)
}

// FQDN returns the UDR's published FQDN, if available.
func (r *Requirer) FQDN(snap relation.Snapshot) (string, bool) {
	return r.Get(snap, endpoint.FQDN)
}

// Port returns the UDR's published port, if available.
func (r *Requirer) Port(snap relation.Snapshot) (string, bool) {
	return r.Get(snap, endpoint.Port)
}

// APIVersion returns the UDR's published API version, if available.
func (r *Requirer) APIVersion(snap relation.Snapshot) (string, bool) {
	return r.Get(snap, endpoint.APIVersion)
}
