// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package status describes the workload status reported for the managed
// unit. Status is never persisted by the operator: it is recomputed from
// scratch on every delivered event and overwritten in place.
package status

import (
	"time"
)

// Status represents the coarse state of the managed workload.
type Status string

// String returns a string representation of the Status.
func (s Status) String() string {
	return string(s)
}

const (
	// Unset is the zero status, reported before the first
	// reconciliation pass has run.
	Unset Status = "unset"

	// Maintenance is set while the operator is actively doing work in
	// preparation for the workload providing service.
	Maintenance Status = "maintenance"

	// Waiting is set when the workload cannot progress because
	// something it depends on has not yet produced the data or
	// connectivity it needs. Waiting conditions clear themselves on a
	// later event; no human intervention is expected.
	Waiting Status = "waiting"

	// Blocked is set when the workload cannot progress until a human
	// intervenes, typically by adding a missing relation.
	Blocked Status = "blocked"

	// Active is set when the workload is correctly configured and
	// offering all the services it has been asked to offer.
	Active Status = "active"

	// Error means the operator itself failed in a way that requires
	// human intervention to recover.
	Error Status = "error"
)

// KnownWorkloadStatus reports whether status is a value the operator may
// legitimately report for its workload.
func (s Status) KnownWorkloadStatus() bool {
	switch s {
	case Unset, Maintenance, Waiting, Blocked, Active, Error:
		return true
	}
	return false
}

// StatusInfo holds a Status and associated information.
type StatusInfo struct {
	Status  Status `yaml:"status"`
	Message string `yaml:"message,omitempty"`

	// Since records when the status was last set. It is stamped by the
	// reporting layer, not by the reconciliation logic, so that equal
	// reconciliation outcomes compare equal.
	Since *time.Time `yaml:"since,omitempty"`
}

// WaitingStatus returns a StatusInfo describing a self-clearing wait on
// the given condition.
func WaitingStatus(message string) StatusInfo {
	return StatusInfo{Status: Waiting, Message: message}
}

// BlockedStatus returns a StatusInfo describing a condition that needs
// human intervention.
func BlockedStatus(message string) StatusInfo {
	return StatusInfo{Status: Blocked, Message: message}
}

// ActiveStatus returns the StatusInfo reported when all preconditions are
// satisfied. It carries no message.
func ActiveStatus() StatusInfo {
	return StatusInfo{Status: Active}
}
