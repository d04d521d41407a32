// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package relation holds the model of the relation channels this
// operator takes part in. A relation channel is a named, platform-managed
// key/value exchange between two applications; each side writes only its
// own application's partition and reads only the peer's. Several
// instances of the same channel name may exist concurrently, one per
// connected peer deployment, distinguished by relation id.
package relation

import (
	"sort"

	"github.com/juju/errors"
)

// Endpoint names for the channels this operator participates in.
const (
	// FiveGUDR is provided by this operator; peers (UDM/AUSF style
	// consumers) join it to learn the UDR endpoint.
	FiveGUDR = "fiveg-udr"

	// FiveGNRF is required by this operator; the NRF operator publishes
	// its endpoint on it.
	FiveGNRF = "fiveg-nrf"

	// Database is required by this operator; the database operator
	// publishes connection credentials on it.
	Database = "database"
)

// ID identifies one instance of a relation channel.
type ID int

// Settings is one application's partition of a relation channel: a
// key-unique mapping of opaque strings. A missing key is modelled as
// absence, never as an error.
type Settings map[string]string

// Get returns the value for key and whether it is present and non-empty.
func (s Settings) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// HasAll reports whether every one of the given keys is present with a
// non-empty value.
func (s Settings) HasAll(keys ...string) bool {
	for _, key := range keys {
		if _, ok := s.Get(key); !ok {
			return false
		}
	}
	return true
}

// Keys returns the sorted keys of the settings.
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Copy returns an independent copy of the settings.
func (s Settings) Copy() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Instance is the operator's view of one relation channel instance as of
// the most recently delivered platform snapshot.
type Instance struct {
	// ID identifies the instance.
	ID ID

	// Endpoint is the channel name the instance belongs to.
	Endpoint string

	// RemoteApplication names the peer application, or is empty when no
	// peer application has joined yet.
	RemoteApplication string

	// RemoteSettings is the peer application's partition. Never written
	// by this operator.
	RemoteSettings Settings

	// LocalSettings is this application's partition as last written by
	// this operator's leader.
	LocalSettings Settings
}

// Joined reports whether a peer application is attached to the instance.
func (i Instance) Joined() bool {
	return i.RemoteApplication != ""
}

// Snapshot is the full relation state visible to the operator at the
// point an event was delivered. Reads always observe the latest delivered
// snapshot; there is no read-after-write guarantee against a peer's most
// recent write beyond channel delivery order.
type Snapshot struct {
	instances map[ID]Instance
}

// NewSnapshot builds a Snapshot from the given instances.
func NewSnapshot(instances ...Instance) Snapshot {
	m := make(map[ID]Instance, len(instances))
	for _, inst := range instances {
		m[inst.ID] = inst
	}
	return Snapshot{instances: m}
}

// Instance returns the instance with the given id.
func (s Snapshot) Instance(id ID) (Instance, error) {
	inst, ok := s.instances[id]
	if !ok {
		return Instance{}, errors.NotFoundf("relation %d", id)
	}
	return inst, nil
}

// Established reports whether at least one instance of the named channel
// exists, joined or not.
func (s Snapshot) Established(endpoint string) bool {
	for _, inst := range s.instances {
		if inst.Endpoint == endpoint {
			return true
		}
	}
	return false
}

// One returns the single instance of the named channel. When several
// instances exist the lowest relation id wins, which keeps the choice
// deterministic across passes.
func (s Snapshot) One(endpoint string) (Instance, bool) {
	ids := s.IDs(endpoint)
	if len(ids) == 0 {
		return Instance{}, false
	}
	return s.instances[ids[0]], true
}

// IDs returns the sorted instance ids of the named channel.
func (s Snapshot) IDs(endpoint string) []ID {
	var ids []ID
	for id, inst := range s.instances {
		if inst.Endpoint == endpoint {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
