// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package statedir_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
	"gopkg.in/yaml.v3"

	"github.com/canonical/oai-udr-operator/core/network"
	"github.com/canonical/oai-udr-operator/core/relation"
	"github.com/canonical/oai-udr-operator/core/status"
	"github.com/canonical/oai-udr-operator/internal/statedir"
	coretesting "github.com/canonical/oai-udr-operator/testing"
)

type StateDirSuite struct {
	coretesting.BaseSuite
	dir *statedir.StateDir
}

var _ = gc.Suite(&StateDirSuite{})

func (s *StateDirSuite) SetUpTest(c *gc.C) {
	s.BaseSuite.SetUpTest(c)
	s.dir = statedir.New(c.MkDir())
	c.Assert(s.dir.Ensure(), jc.ErrorIsNil)
}

func (s *StateDirSuite) writeRelation(c *gc.C, endpointName string, id int, remoteApp string, data map[string]string) {
	dir := filepath.Join(s.dir.RelationsPath(), endpointName)
	c.Assert(os.MkdirAll(dir, 0755), jc.ErrorIsNil)
	doc := map[string]interface{}{
		"remote-application": remoteApp,
		"data":               data,
	}
	raw, err := yaml.Marshal(doc)
	c.Assert(err, jc.ErrorIsNil)
	path := filepath.Join(dir, fmt.Sprintf("%d.yaml", id))
	c.Assert(os.WriteFile(path, raw, 0644), jc.ErrorIsNil)
}

func (s *StateDirSuite) TestEnsureIdempotent(c *gc.C) {
	c.Assert(s.dir.Ensure(), jc.ErrorIsNil)
	info, err := os.Stat(s.dir.RelationsPath())
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(info.IsDir(), jc.IsTrue)
}

func (s *StateDirSuite) TestLeader(c *gc.C) {
	leader, err := s.dir.Leader()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(leader, jc.IsFalse)

	path := filepath.Join(s.dir.Path(), statedir.LeaderFile)
	c.Assert(os.WriteFile(path, nil, 0644), jc.ErrorIsNil)
	leader, err = s.dir.Leader()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(leader, jc.IsTrue)

	c.Assert(os.Remove(path), jc.ErrorIsNil)
	leader, err = s.dir.Leader()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(leader, jc.IsFalse)
}

func (s *StateDirSuite) TestConfigAttrsMissing(c *gc.C) {
	attrs, err := s.dir.ConfigAttrs()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(attrs, gc.IsNil)
}

func (s *StateDirSuite) TestConfigAttrs(c *gc.C) {
	path := filepath.Join(s.dir.Path(), statedir.ConfigFile)
	content := "udr-name: udr-east\nnudr-interface-port: \"8081\"\n"
	c.Assert(os.WriteFile(path, []byte(content), 0644), jc.ErrorIsNil)
	attrs, err := s.dir.ConfigAttrs()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(attrs, jc.DeepEquals, map[string]interface{}{
		"udr-name":            "udr-east",
		"nudr-interface-port": "8081",
	})
}

func (s *StateDirSuite) TestConfigAttrsUnparseable(c *gc.C) {
	path := filepath.Join(s.dir.Path(), statedir.ConfigFile)
	c.Assert(os.WriteFile(path, []byte("{unclosed"), 0644), jc.ErrorIsNil)
	_, err := s.dir.ConfigAttrs()
	c.Assert(err, gc.ErrorMatches, "parsing configuration: .*")
}

func (s *StateDirSuite) TestRelationsEmpty(c *gc.C) {
	snap, err := s.dir.Relations()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(snap.Established(relation.FiveGNRF), jc.IsFalse)
}

func (s *StateDirSuite) TestRelations(c *gc.C) {
	s.writeRelation(c, relation.FiveGNRF, 2, "nrf", map[string]string{
		"nrf_ipv4_address": "10.0.0.7",
	})
	s.writeRelation(c, relation.Database, 3, "mysql", map[string]string{
		"username": "admin",
	})

	snap, err := s.dir.Relations()
	c.Assert(err, jc.ErrorIsNil)
	inst, err := snap.Instance(2)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(inst, jc.DeepEquals, relation.Instance{
		ID:                2,
		Endpoint:          relation.FiveGNRF,
		RemoteApplication: "nrf",
		RemoteSettings:    relation.Settings{"nrf_ipv4_address": "10.0.0.7"},
	})
	c.Assert(snap.Established(relation.Database), jc.IsTrue)
}

func (s *StateDirSuite) TestRelationsSkipsForeignFiles(c *gc.C) {
	dir := filepath.Join(s.dir.RelationsPath(), relation.FiveGNRF)
	c.Assert(os.MkdirAll(dir, 0755), jc.ErrorIsNil)
	c.Assert(os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte("{}"), 0644), jc.ErrorIsNil)
	c.Assert(os.WriteFile(filepath.Join(dir, "9-out.yaml"), []byte("data: {}"), 0644), jc.ErrorIsNil)

	snap, err := s.dir.Relations()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(snap.Established(relation.FiveGNRF), jc.IsFalse)
}

func (s *StateDirSuite) TestSetRelationSettings(c *gc.C) {
	s.writeRelation(c, relation.FiveGUDR, 7, "udm", nil)
	err := s.dir.SetRelationSettings(7, relation.Settings{
		"udr_ipv4_address": "127.0.0.1",
		"udr_port":         "80",
	})
	c.Assert(err, jc.ErrorIsNil)

	snap, err := s.dir.Relations()
	c.Assert(err, jc.ErrorIsNil)
	inst, err := snap.Instance(7)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(inst.LocalSettings, jc.DeepEquals, relation.Settings{
		"udr_ipv4_address": "127.0.0.1",
		"udr_port":         "80",
	})
}

func (s *StateDirSuite) TestSetRelationSettingsMerges(c *gc.C) {
	s.writeRelation(c, relation.FiveGUDR, 7, "udm", nil)
	err := s.dir.SetRelationSettings(7, relation.Settings{"udr_port": "80"})
	c.Assert(err, jc.ErrorIsNil)
	err = s.dir.SetRelationSettings(7, relation.Settings{"udr_api_version": "v1"})
	c.Assert(err, jc.ErrorIsNil)

	snap, err := s.dir.Relations()
	c.Assert(err, jc.ErrorIsNil)
	inst, err := snap.Instance(7)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(inst.LocalSettings, jc.DeepEquals, relation.Settings{
		"udr_port":        "80",
		"udr_api_version": "v1",
	})
}

func (s *StateDirSuite) TestSetRelationSettingsUnknownRelation(c *gc.C) {
	err := s.dir.SetRelationSettings(7, relation.Settings{"udr_port": "80"})
	c.Assert(err, jc.ErrorIs, errors.NotFound)
}

func (s *StateDirSuite) TestStatusRoundTrip(c *gc.C) {
	_, err := s.dir.ReadStatus()
	c.Assert(err, jc.ErrorIs, errors.NotFound)

	since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	info := status.StatusInfo{
		Status:  status.Blocked,
		Message: "Waiting for relation to database to be created",
		Since:   &since,
	}
	c.Assert(s.dir.WriteStatus(info), jc.ErrorIsNil)
	read, err := s.dir.ReadStatus()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(read.Status, gc.Equals, status.Blocked)
	c.Assert(read.Message, gc.Equals, info.Message)
	c.Assert(read.Since.Equal(since), jc.IsTrue)
}

func (s *StateDirSuite) TestWriteVersion(c *gc.C) {
	c.Assert(s.dir.WriteVersion("1.0.2"), jc.ErrorIsNil)
	data, err := os.ReadFile(filepath.Join(s.dir.Path(), statedir.VersionFile))
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(string(data), gc.Equals, "1.0.2\n")
}

func (s *StateDirSuite) TestPortsRoundTrip(c *gc.C) {
	_, err := s.dir.ReadPorts()
	c.Assert(err, jc.ErrorIs, errors.NotFound)

	ports := []network.ServicePort{
		{Name: "http1", Port: 80, TargetPort: 80, Protocol: "TCP"},
		{Name: "http2", Port: 8080, TargetPort: 8080, Protocol: "TCP"},
	}
	c.Assert(s.dir.WritePorts(ports), jc.ErrorIsNil)
	read, err := s.dir.ReadPorts()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(read, jc.DeepEquals, ports)
}
