// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package database implements the requirer half of the database
// relation interface: it consumes the credentials a database provider
// publishes once it has created a database for this application.
package database

import (
	"strings"

	"github.com/juju/loggo/v2"

	"github.com/canonical/oai-udr-operator/core/relation"
)

var logger = loggo.GetLogger("udroperator.charmlib.database")

// Channel keys published by the database provider.
const (
	KeyUsername  = "username"
	KeyPassword  = "password"
	KeyEndpoints = "endpoints"
)

// Credentials is the access data published by a database provider.
// Endpoints is a comma-separated list of host:port pairs.
type Credentials struct {
	Username  string
	Password  string
	Endpoints string
}

// Complete reports whether every field is present.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != "" && c.Endpoints != ""
}

// Server returns the host of the first endpoint, the one handed to the
// workload. Any port suffix is dropped.
func (c Credentials) Server() string {
	first := strings.Split(c.Endpoints, ",")[0]
	return strings.Split(first, ":")[0]
}

// Requirer consumes database credentials published on the database
// relation and raises a level-triggered notification once the provider
// has created the database.
type Requirer struct {
	notify []func(Credentials)
}

// NewRequirer returns a Requirer over the database endpoint.
func NewRequirer() *Requirer {
	return &Requirer{}
}

// NotifyCreated registers fn to be invoked with the credentials
// whenever a change evaluation finds them complete.
func (r *Requirer) NotifyCreated(fn func(Credentials)) {
	r.notify = append(r.notify, fn)
}

// HandleChanged evaluates a relation change on the database endpoint.
func (r *Requirer) HandleChanged(inst relation.Instance) {
	if inst.Endpoint != relation.Database {
		return
	}
	if !inst.Joined() {
		logger.Infof("no remote application on relation %d, deferring evaluation", inst.ID)
		return
	}
	creds, ok := decode(inst.RemoteSettings)
	if !ok {
		logger.Debugf("relation %d database credentials incomplete", inst.ID)
		return
	}
	for _, fn := range r.notify {
		fn(creds)
	}
}

// Credentials returns the complete credentials from the resolved
// database relation, or false if the endpoint is unrelated or the
// provider has not yet published them all.
func (r *Requirer) Credentials(snap relation.Snapshot) (Credentials, bool) {
	inst, ok := snap.One(relation.Database)
	if !ok {
		return Credentials{}, false
	}
	return decode(inst.RemoteSettings)
}

// Available reports whether complete credentials have been published.
func (r *Requirer) Available(snap relation.Snapshot) bool {
	_, ok := r.Credentials(snap)
	return ok
}

func decode(s relation.Settings) (Credentials, bool) {
	creds := Credentials{}
	creds.Username, _ = s.Get(KeyUsername)
	creds.Password, _ = s.Get(KeyPassword)
	creds.Endpoints, _ = s.Get(KeyEndpoints)
	if !creds.Complete() {
		return Credentials{}, false
	}
	return creds, true
}
