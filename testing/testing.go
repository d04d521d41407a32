// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package testing provides suite plumbing shared by the repo's tests.
package testing

import (
	"time"

	jujutesting "github.com/juju/testing"
	"github.com/juju/utils/v4"
)

const (
	// LongWait is the upper bound for something expected to happen.
	LongWait = 10 * time.Second

	// ShortWait is how long to watch for something expected not to
	// happen.
	ShortWait = 50 * time.Millisecond
)

// LongAttempt polls for an asynchronous condition that is expected to
// hold before LongWait runs out.
var LongAttempt = utils.AttemptStrategy{
	Total: LongWait,
	Delay: 10 * time.Millisecond,
}

// BaseSuite isolates tests from the host environment and captures
// logging.
type BaseSuite struct {
	jujutesting.IsolationSuite
}
