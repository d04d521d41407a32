// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package relation_test

import (
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/oai-udr-operator/core/relation"
)

type SettingsSuite struct{}

var _ = gc.Suite(&SettingsSuite{})

func (*SettingsSuite) TestGet(c *gc.C) {
	s := relation.Settings{"a": "1", "empty": ""}
	v, ok := s.Get("a")
	c.Check(ok, jc.IsTrue)
	c.Check(v, gc.Equals, "1")

	_, ok = s.Get("missing")
	c.Check(ok, jc.IsFalse)

	// An empty value counts as absent.
	_, ok = s.Get("empty")
	c.Check(ok, jc.IsFalse)
}

func (*SettingsSuite) TestGetNil(c *gc.C) {
	var s relation.Settings
	_, ok := s.Get("a")
	c.Check(ok, jc.IsFalse)
}

func (*SettingsSuite) TestHasAll(c *gc.C) {
	s := relation.Settings{"a": "1", "b": "2", "c": ""}
	c.Check(s.HasAll("a", "b"), jc.IsTrue)
	c.Check(s.HasAll("a", "b", "c"), jc.IsFalse)
	c.Check(s.HasAll("a", "d"), jc.IsFalse)
	c.Check(s.HasAll(), jc.IsTrue)
}

func (*SettingsSuite) TestCopyIndependent(c *gc.C) {
	s := relation.Settings{"a": "1"}
	copied := s.Copy()
	copied["a"] = "2"
	c.Check(s["a"], gc.Equals, "1")
}

func (*SettingsSuite) TestKeysSorted(c *gc.C) {
	s := relation.Settings{"b": "2", "a": "1", "c": "3"}
	c.Check(s.Keys(), jc.DeepEquals, []string{"a", "b", "c"})
	c.Check(relation.Settings(nil).Keys(), gc.HasLen, 0)
}

type SnapshotSuite struct{}

var _ = gc.Suite(&SnapshotSuite{})

func (*SnapshotSuite) TestInstanceNotFound(c *gc.C) {
	snap := relation.NewSnapshot()
	_, err := snap.Instance(3)
	c.Check(err, jc.ErrorIs, errors.NotFound)
}

func (*SnapshotSuite) TestEstablished(c *gc.C) {
	snap := relation.NewSnapshot(
		relation.Instance{ID: 1, Endpoint: relation.FiveGNRF},
	)
	c.Check(snap.Established(relation.FiveGNRF), jc.IsTrue)
	c.Check(snap.Established(relation.Database), jc.IsFalse)
}

func (*SnapshotSuite) TestOnePicksLowestID(c *gc.C) {
	snap := relation.NewSnapshot(
		relation.Instance{ID: 7, Endpoint: relation.FiveGNRF, RemoteApplication: "nrf-b"},
		relation.Instance{ID: 2, Endpoint: relation.FiveGNRF, RemoteApplication: "nrf-a"},
	)
	inst, ok := snap.One(relation.FiveGNRF)
	c.Assert(ok, jc.IsTrue)
	c.Check(inst.ID, gc.Equals, relation.ID(2))
	c.Check(inst.RemoteApplication, gc.Equals, "nrf-a")
}

func (*SnapshotSuite) TestIDsSorted(c *gc.C) {
	snap := relation.NewSnapshot(
		relation.Instance{ID: 9, Endpoint: relation.FiveGUDR},
		relation.Instance{ID: 4, Endpoint: relation.FiveGUDR},
		relation.Instance{ID: 6, Endpoint: relation.Database},
	)
	c.Check(snap.IDs(relation.FiveGUDR), jc.DeepEquals, []relation.ID{4, 9})
	c.Check(snap.IDs(relation.FiveGNRF), gc.HasLen, 0)
}

func (*SnapshotSuite) TestJoined(c *gc.C) {
	c.Check(relation.Instance{RemoteApplication: "udm"}.Joined(), jc.IsTrue)
	c.Check(relation.Instance{}.Joined(), jc.IsFalse)
}
