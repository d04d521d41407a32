// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package endpoint defines the wire contract shared by the 5G SBI
// relation interfaces: a four-field endpoint record published as plain
// relation channel entries, keyed with the producing role's prefix
// (udr_ipv4_address, nrf_fqdn and so on). All values are opaque strings;
// the port is carried as text and never parsed here.
package endpoint

import (
	"github.com/juju/collections/set"

	"github.com/canonical/oai-udr-operator/core/relation"
)

// Field identifies one entry of an endpoint record.
type Field string

const (
	IPv4Address Field = "ipv4_address"
	FQDN        Field = "fqdn"
	Port        Field = "port"
	APIVersion  Field = "api_version"
)

// Fields returns the record fields in wire-key order.
func Fields() []Field {
	return []Field{IPv4Address, FQDN, Port, APIVersion}
}

// Record is one role's published endpoint data. A record is complete
// only when all four fields are non-empty; partial records never count
// as available.
type Record struct {
	IPv4Address string
	FQDN        string
	Port        string
	APIVersion  string
}

// Field returns the value of the named field.
func (r Record) Field(f Field) string {
	switch f {
	case IPv4Address:
		return r.IPv4Address
	case FQDN:
		return r.FQDN
	case Port:
		return r.Port
	case APIVersion:
		return r.APIVersion
	}
	return ""
}

// Complete reports whether every field is present.
func (r Record) Complete() bool {
	for _, f := range Fields() {
		if r.Field(f) == "" {
			return false
		}
	}
	return true
}

// Codec translates between Records and the channel entries of one role.
type Codec struct {
	prefix string
}

// NewCodec returns a Codec for the given role prefix ("udr", "nrf").
func NewCodec(prefix string) Codec {
	return Codec{prefix: prefix}
}

// Key returns the channel key carrying the given field.
func (c Codec) Key(f Field) string {
	return c.prefix + "_" + string(f)
}

// Keys returns all four channel keys in wire order.
func (c Codec) Keys() []string {
	fields := Fields()
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = c.Key(f)
	}
	return keys
}

// Encode returns the channel entries carrying the record.
func (c Codec) Encode(r Record) relation.Settings {
	return relation.Settings{
		c.Key(IPv4Address): r.IPv4Address,
		c.Key(FQDN):        r.FQDN,
		c.Key(Port):        r.Port,
		c.Key(APIVersion):  r.APIVersion,
	}
}

// Decode reads a record from channel entries. It returns false unless
// the record is complete; a missing key is absence, not an error.
func (c Codec) Decode(s relation.Settings) (Record, bool) {
	r := Record{}
	for _, f := range Fields() {
		v, ok := s.Get(c.Key(f))
		if !ok {
			return Record{}, false
		}
		switch f {
		case IPv4Address:
			r.IPv4Address = v
		case FQDN:
			r.FQDN = v
		case Port:
			r.Port = v
		case APIVersion:
			r.APIVersion = v
		}
	}
	return r, true
}

// Missing returns the wire keys absent from the given entries, in wire
// order.
func (c Codec) Missing(s relation.Settings) []string {
	present := set.NewStrings()
	for _, key := range c.Keys() {
		if _, ok := s.Get(key); ok {
			present.Add(key)
		}
	}
	var missing []string
	for _, key := range c.Keys() {
		if !present.Contains(key) {
			missing = append(missing, key)
		}
	}
	return missing
}
