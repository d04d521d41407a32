// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package statedir reads and writes the operator's model state
// directory. The platform maintains the inbound half: configuration
// attributes, the leadership marker and one file per relation under
// relations/<endpoint>/<id>.yaml. The operator maintains the outbound
// half: per-relation published settings (<id>-out.yaml), the reported
// workload status and the declared service ports. Outbound files are
// written atomically so the platform never reads a torn file.
package statedir

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v3"

	"github.com/canonical/oai-udr-operator/core/network"
	"github.com/canonical/oai-udr-operator/core/relation"
	"github.com/canonical/oai-udr-operator/core/status"
)

var logger = loggo.GetLogger("udroperator.statedir")

// Well-known entries of the state directory.
const (
	ConfigFile   = "config.yaml"
	LeaderFile   = "leader"
	StatusFile   = "status.yaml"
	PortsFile    = "ports.yaml"
	VersionFile  = "version"
	RelationsDir = "relations"

	// OutSuffix marks operator-written relation files. The watcher
	// relies on it to tell our own writes from platform ones.
	OutSuffix = "-out.yaml"
)

// StateDir is a handle on one state directory.
type StateDir struct {
	path string
}

// New returns a StateDir rooted at path.
func New(path string) *StateDir {
	return &StateDir{path: path}
}

// Path returns the directory root.
func (d *StateDir) Path() string {
	return d.path
}

// RelationsPath returns the root of the relation tree.
func (d *StateDir) RelationsPath() string {
	return filepath.Join(d.path, RelationsDir)
}

// Ensure creates the directory skeleton if it is missing.
func (d *StateDir) Ensure() error {
	if err := os.MkdirAll(d.RelationsPath(), 0755); err != nil {
		return errors.Annotate(err, "creating state directory")
	}
	return nil
}

// Leader reports whether this replica currently holds leadership. The
// platform grants it by creating the marker file and revokes it by
// removing it.
func (d *StateDir) Leader() (bool, error) {
	_, err := os.Stat(filepath.Join(d.path, LeaderFile))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Annotate(err, "reading leadership marker")
	}
	return true, nil
}

// ConfigAttrs returns the raw configuration attributes. A missing file
// means no overrides: every option is at its default.
func (d *StateDir) ConfigAttrs() (map[string]interface{}, error) {
	data, err := os.ReadFile(filepath.Join(d.path, ConfigFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotate(err, "reading configuration")
	}
	var attrs map[string]interface{}
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return nil, errors.Annotate(err, "parsing configuration")
	}
	return attrs, nil
}

type relationDoc struct {
	RemoteApplication string            `yaml:"remote-application"`
	Data              map[string]string `yaml:"data"`
}

type outDoc struct {
	Data map[string]string `yaml:"data"`
}

// Relations reads the whole relation tree into a snapshot. File names
// carry the relation id; anything not named <id>.yaml is skipped.
func (d *StateDir) Relations() (relation.Snapshot, error) {
	endpoints, err := os.ReadDir(d.RelationsPath())
	if os.IsNotExist(err) {
		return relation.NewSnapshot(), nil
	}
	if err != nil {
		return relation.Snapshot{}, errors.Annotate(err, "reading relation tree")
	}
	var instances []relation.Instance
	for _, endpointEntry := range endpoints {
		if !endpointEntry.IsDir() {
			continue
		}
		endpointName := endpointEntry.Name()
		dir := filepath.Join(d.RelationsPath(), endpointName)
		files, err := os.ReadDir(dir)
		if err != nil {
			return relation.Snapshot{}, errors.Annotatef(err, "reading relation endpoint %q", endpointName)
		}
		for _, file := range files {
			id, ok := relationFileID(file.Name())
			if !ok {
				continue
			}
			inst, err := d.readRelation(endpointName, id)
			if err != nil {
				return relation.Snapshot{}, errors.Trace(err)
			}
			instances = append(instances, inst)
		}
	}
	return relation.NewSnapshot(instances...), nil
}

func (d *StateDir) readRelation(endpointName string, id relation.ID) (relation.Instance, error) {
	path := filepath.Join(d.RelationsPath(), endpointName, strconv.Itoa(int(id))+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return relation.Instance{}, errors.Annotatef(err, "reading relation %d", id)
	}
	var doc relationDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return relation.Instance{}, errors.Annotatef(err, "parsing relation %d", id)
	}
	inst := relation.Instance{
		ID:                id,
		Endpoint:          endpointName,
		RemoteApplication: doc.RemoteApplication,
		RemoteSettings:    relation.Settings(doc.Data),
	}

	outPath := filepath.Join(d.RelationsPath(), endpointName, outName(id))
	outData, err := os.ReadFile(outPath)
	if os.IsNotExist(err) {
		return inst, nil
	}
	if err != nil {
		return relation.Instance{}, errors.Annotatef(err, "reading relation %d published settings", id)
	}
	var out outDoc
	if err := yaml.Unmarshal(outData, &out); err != nil {
		return relation.Instance{}, errors.Annotatef(err, "parsing relation %d published settings", id)
	}
	inst.LocalSettings = relation.Settings(out.Data)
	return inst, nil
}

// SetRelationSettings merges settings into this application's
// published partition of the identified relation. Existing keys not
// named are preserved.
func (d *StateDir) SetRelationSettings(id relation.ID, settings relation.Settings) error {
	endpointName, err := d.findRelation(id)
	if err != nil {
		return errors.Trace(err)
	}
	inst, err := d.readRelation(endpointName, id)
	if err != nil {
		return errors.Trace(err)
	}
	merged := inst.LocalSettings.Copy()
	if merged == nil {
		merged = relation.Settings{}
	}
	for k, v := range settings {
		merged[k] = v
	}
	data, err := yaml.Marshal(outDoc{Data: merged})
	if err != nil {
		return errors.Trace(err)
	}
	outPath := filepath.Join(d.RelationsPath(), endpointName, outName(id))
	if err := utils.AtomicWriteFile(outPath, data, 0644); err != nil {
		return errors.Annotatef(err, "writing relation %d published settings", id)
	}
	logger.Debugf("published settings for relation %d: %v", id, settings.Keys())
	return nil
}

// WriteStatus records the reported workload status.
func (d *StateDir) WriteStatus(info status.StatusInfo) error {
	data, err := yaml.Marshal(info)
	if err != nil {
		return errors.Trace(err)
	}
	path := filepath.Join(d.path, StatusFile)
	return errors.Annotate(utils.AtomicWriteFile(path, data, 0644), "writing status")
}

// ReadStatus returns the last recorded workload status.
func (d *StateDir) ReadStatus() (status.StatusInfo, error) {
	data, err := os.ReadFile(filepath.Join(d.path, StatusFile))
	if os.IsNotExist(err) {
		return status.StatusInfo{}, errors.NotFoundf("recorded status")
	}
	if err != nil {
		return status.StatusInfo{}, errors.Annotate(err, "reading status")
	}
	var info status.StatusInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return status.StatusInfo{}, errors.Annotate(err, "parsing status")
	}
	return info, nil
}

// WriteVersion records the operator version managing this directory.
func (d *StateDir) WriteVersion(v string) error {
	path := filepath.Join(d.path, VersionFile)
	return errors.Annotate(utils.AtomicWriteFile(path, []byte(v+"\n"), 0644), "writing version")
}

type portsDoc struct {
	Ports []network.ServicePort `yaml:"ports"`
}

// WritePorts records the service ports the workload exposes.
func (d *StateDir) WritePorts(ports []network.ServicePort) error {
	data, err := yaml.Marshal(portsDoc{Ports: ports})
	if err != nil {
		return errors.Trace(err)
	}
	path := filepath.Join(d.path, PortsFile)
	return errors.Annotate(utils.AtomicWriteFile(path, data, 0644), "writing ports")
}

// ReadPorts returns the last recorded service ports.
func (d *StateDir) ReadPorts() ([]network.ServicePort, error) {
	data, err := os.ReadFile(filepath.Join(d.path, PortsFile))
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("recorded ports")
	}
	if err != nil {
		return nil, errors.Annotate(err, "reading ports")
	}
	var doc portsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Annotate(err, "parsing ports")
	}
	return doc.Ports, nil
}

func (d *StateDir) findRelation(id relation.ID) (string, error) {
	endpoints, err := os.ReadDir(d.RelationsPath())
	if err != nil {
		return "", errors.Annotate(err, "reading relation tree")
	}
	name := strconv.Itoa(int(id)) + ".yaml"
	for _, endpointEntry := range endpoints {
		if !endpointEntry.IsDir() {
			continue
		}
		path := filepath.Join(d.RelationsPath(), endpointEntry.Name(), name)
		if _, err := os.Stat(path); err == nil {
			return endpointEntry.Name(), nil
		}
	}
	return "", errors.NotFoundf("relation %d", id)
}

func outName(id relation.ID) string {
	return strconv.Itoa(int(id)) + OutSuffix
}

// relationFileID extracts the relation id from a platform-written
// relation file name. Operator-written and foreign files yield false.
func relationFileID(name string) (relation.ID, bool) {
	if strings.HasSuffix(name, OutSuffix) {
		return 0, false
	}
	if !strings.HasSuffix(name, ".yaml") {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(name, ".yaml"))
	if err != nil || id < 0 {
		return 0, false
	}
	return relation.ID(id), true
}
