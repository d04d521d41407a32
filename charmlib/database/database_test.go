// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package database_test

import (
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/oai-udr-operator/charmlib/database"
	"github.com/canonical/oai-udr-operator/core/relation"
)

type CredentialsSuite struct{}

var _ = gc.Suite(&CredentialsSuite{})

func (s *CredentialsSuite) TestComplete(c *gc.C) {
	creds := database.Credentials{
		Username:  "admin",
		Password:  "secret",
		Endpoints: "mysql:3306",
	}
	c.Assert(creds.Complete(), jc.IsTrue)
	c.Assert(database.Credentials{Username: "admin", Password: "secret"}.Complete(), jc.IsFalse)
	c.Assert(database.Credentials{}.Complete(), jc.IsFalse)
}

func (s *CredentialsSuite) TestServer(c *gc.C) {
	for i, t := range []struct {
		endpoints string
		server    string
	}{
		{"mysql:3306", "mysql"},
		{"mysql-0.mysql-endpoints:3306,mysql-1.mysql-endpoints:3306", "mysql-0.mysql-endpoints"},
		{"10.152.183.44", "10.152.183.44"},
		{"", ""},
	} {
		c.Logf("test %d: %q", i, t.endpoints)
		creds := database.Credentials{Endpoints: t.endpoints}
		c.Assert(creds.Server(), gc.Equals, t.server)
	}
}

type RequirerSuite struct{}

var _ = gc.Suite(&RequirerSuite{})

func (s *RequirerSuite) complete() relation.Settings {
	return relation.Settings{
		"username":  "admin",
		"password":  "secret",
		"endpoints": "mysql-0.mysql-endpoints:3306,mysql-1.mysql-endpoints:3306",
	}
}

func (s *RequirerSuite) TestCredentials(c *gc.C) {
	req := database.NewRequirer()
	snap := relation.NewSnapshot(relation.Instance{
		ID:                3,
		Endpoint:          relation.Database,
		RemoteApplication: "mysql",
		RemoteSettings:    s.complete(),
	})
	creds, ok := req.Credentials(snap)
	c.Assert(ok, jc.IsTrue)
	c.Assert(creds, gc.Equals, database.Credentials{
		Username:  "admin",
		Password:  "secret",
		Endpoints: "mysql-0.mysql-endpoints:3306,mysql-1.mysql-endpoints:3306",
	})
	c.Assert(req.Available(snap), jc.IsTrue)
}

func (s *RequirerSuite) TestCredentialsIncomplete(c *gc.C) {
	req := database.NewRequirer()
	snap := relation.NewSnapshot(relation.Instance{
		ID:                3,
		Endpoint:          relation.Database,
		RemoteApplication: "mysql",
		RemoteSettings: relation.Settings{
			"username": "admin",
		},
	})
	_, ok := req.Credentials(snap)
	c.Assert(ok, jc.IsFalse)
	c.Assert(req.Available(snap), jc.IsFalse)
}

func (s *RequirerSuite) TestCredentialsUnrelated(c *gc.C) {
	req := database.NewRequirer()
	c.Assert(req.Available(relation.NewSnapshot()), jc.IsFalse)
}

func (s *RequirerSuite) TestNotifyCreated(c *gc.C) {
	req := database.NewRequirer()
	var got []database.Credentials
	req.NotifyCreated(func(creds database.Credentials) {
		got = append(got, creds)
	})
	req.HandleChanged(relation.Instance{
		ID:                3,
		Endpoint:          relation.Database,
		RemoteApplication: "mysql",
		RemoteSettings:    s.complete(),
	})
	c.Assert(got, gc.HasLen, 1)
	c.Assert(got[0].Username, gc.Equals, "admin")
}

func (s *RequirerSuite) TestNotifyCreatedIncomplete(c *gc.C) {
	req := database.NewRequirer()
	var calls int
	req.NotifyCreated(func(database.Credentials) { calls++ })
	req.HandleChanged(relation.Instance{
		ID:                3,
		Endpoint:          relation.Database,
		RemoteApplication: "mysql",
		RemoteSettings:    relation.Settings{"username": "admin"},
	})
	c.Assert(calls, gc.Equals, 0)
}

func (s *RequirerSuite) TestNotifyCreatedNoRemoteApplication(c *gc.C) {
	req := database.NewRequirer()
	var calls int
	req.NotifyCreated(func(database.Credentials) { calls++ })
	req.HandleChanged(relation.Instance{
		ID:             3,
		Endpoint:       relation.Database,
		RemoteSettings: s.complete(),
	})
	c.Assert(calls, gc.Equals, 0)
}
