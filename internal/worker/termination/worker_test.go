// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package termination_test

import (
	"os"
	"syscall"

	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/canonical/oai-udr-operator/internal/worker/termination"
	coretesting "github.com/canonical/oai-udr-operator/testing"
)

type TerminationSuite struct {
	coretesting.BaseSuite
}

var _ = gc.Suite(&TerminationSuite{})

func (s *TerminationSuite) TestCleanKill(c *gc.C) {
	w, err := termination.NewWorker()
	c.Assert(err, jc.ErrorIsNil)
	workertest.CleanKill(c, w)
}

func (s *TerminationSuite) TestSignal(c *gc.C) {
	w, err := termination.NewWorker()
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.DirtyKill(c, w)

	proc, err := os.FindProcess(os.Getpid())
	c.Assert(err, jc.ErrorIsNil)
	defer proc.Release()
	err = proc.Signal(syscall.SIGTERM)
	c.Assert(err, jc.ErrorIsNil)

	err = w.Wait()
	c.Check(err, jc.ErrorIs, termination.ErrTerminate)
}
