// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package status_test

import (
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/oai-udr-operator/core/status"
)

type StatusSuite struct{}

var _ = gc.Suite(&StatusSuite{})

func (*StatusSuite) TestKnownWorkloadStatus(c *gc.C) {
	for _, s := range []status.Status{
		status.Unset,
		status.Maintenance,
		status.Waiting,
		status.Blocked,
		status.Active,
		status.Error,
	} {
		c.Check(s.KnownWorkloadStatus(), jc.IsTrue)
	}
	c.Check(status.Status("banana").KnownWorkloadStatus(), jc.IsFalse)
	c.Check(status.Status("").KnownWorkloadStatus(), jc.IsFalse)
}

func (*StatusSuite) TestConstructors(c *gc.C) {
	w := status.WaitingStatus("waiting for x")
	c.Check(w.Status, gc.Equals, status.Waiting)
	c.Check(w.Message, gc.Equals, "waiting for x")
	c.Check(w.Since, gc.IsNil)

	b := status.BlockedStatus("add a relation")
	c.Check(b.Status, gc.Equals, status.Blocked)
	c.Check(b.Message, gc.Equals, "add a relation")

	a := status.ActiveStatus()
	c.Check(a.Status, gc.Equals, status.Active)
	c.Check(a.Message, gc.Equals, "")
}
