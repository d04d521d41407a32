// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package operator

import (
	"fmt"

	"github.com/canonical/oai-udr-operator/core/relation"
)

// Kind names a lifecycle event the operator reacts to.
type Kind string

const (
	// ConfigChanged reports a change to the operator's configuration
	// attributes.
	ConfigChanged Kind = "config-changed"

	// NRFRelationChanged reports a change on the fiveg-nrf relation.
	NRFRelationChanged Kind = "fiveg-nrf-relation-changed"

	// DatabaseChanged reports a change on the database relation,
	// including the provider first publishing credentials.
	DatabaseChanged Kind = "database-changed"

	// UDRRelationJoined reports a consumer newly attached to the
	// fiveg-udr relation. It carries the relation id.
	UDRRelationJoined Kind = "fiveg-udr-relation-joined"

	// LeadershipChanged reports this replica gaining or losing
	// leadership.
	LeadershipChanged Kind = "leadership-changed"

	// WorkloadReady reports the workload runtime answering on its
	// socket after a period of unreachability.
	WorkloadReady Kind = "workload-ready"
)

// Event is one delivered lifecycle event.
type Event struct {
	Kind Kind

	// RelationID identifies the relation a join event targets.
	RelationID relation.ID
}

// String is used in logs.
func (e Event) String() string {
	if e.Kind == UDRRelationJoined {
		return fmt.Sprintf("%s (relation %d)", e.Kind, e.RelationID)
	}
	return string(e.Kind)
}
