// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package fivegnrf implements the requirer half of the fiveg-nrf
// relation interface: it watches for the NRF's endpoint record and
// reports when the NRF becomes reachable.
package fivegnrf

import (
	"github.com/canonical/oai-udr-operator/charmlib/endpoint"
	"github.com/canonical/oai-udr-operator/core/relation"
)

// Prefix keys the NRF's entries in the relation channel.
const Prefix = "nrf"

// Requirer consumes the NRF endpoint record published on the fiveg-nrf
// relation.
type Requirer struct {
	*endpoint.Observer
}

// NewRequirer returns a Requirer over the fiveg-nrf endpoint.
func NewRequirer() *Requirer {
	return &Requirer{
		Observer: endpoint.NewObserver(relation.FiveGNRF, Prefix),
	}
}

// IPv4Address returns the NRF's published IPv4 address, if available.
func (r *Requirer) IPv4Address(snap relation.Snapshot) (string, bool) {
	return r.Get(snap, endpoint.IPv4Address)
}

// FQDN returns the NRF's published FQDN, if available.
func (r *Requirer) FQDN(snap relation.Snapshot) (string, bool) {
	return r.Get(snap, endpoint.FQDN)
}

// Port returns the NRF's published port, if available. The value is
// the verbatim channel entry; it is rendered, never parsed.
func (r *Requirer) Port(snap relation.Snapshot) (string, bool) {
	return r.Get(snap, endpoint.Port)
}

// APIVersion returns the NRF's published API version, if available.
func (r *Requirer) APIVersion(snap relation.Snapshot) (string, bool) {
	return r.Get(snap, endpoint.APIVersion)
}
