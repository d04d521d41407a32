// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pebbleclient adapts the workload runtime behind a small
// surface: reachability, file push and existence, process-layer
// application and service restart, and service liveness. Everything
// here talks to the runtime's unix socket; reachability is inherently
// racy and callers must treat a positive answer as advisory.
package pebbleclient

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/canonical/pebble/client"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("udroperator.pebbleclient")

// Client is the slice of the runtime client the adapter needs.
type Client interface {
	SysInfo() (*client.SysInfo, error)
	Push(opts *client.PushOptions) error
	ListFiles(opts *client.ListFilesOptions) ([]*client.FileInfo, error)
	AddLayer(opts *client.AddLayerOptions) error
	Replan(opts *client.ServiceOptions) (string, error)
	Restart(opts *client.ServiceOptions) (string, error)
	WaitChange(id string, opts *client.WaitChangeOptions) (*client.Change, error)
	Services(opts *client.ServicesOptions) ([]*client.ServiceInfo, error)
}

// Config holds the dependencies of a Runtime.
type Config struct {
	// Socket is the runtime's unix socket path.
	Socket string

	// ChangeTimeout bounds how long plan changes (replan, restart)
	// may take before the adapter gives up on them.
	ChangeTimeout time.Duration
}

// Validate returns an error if the config cannot drive a Runtime.
func (config Config) Validate() error {
	if config.Socket == "" {
		return errors.NotValidf("empty Socket")
	}
	if config.ChangeTimeout <= 0 {
		return errors.NotValidf("non-positive ChangeTimeout")
	}
	return nil
}

// Runtime is the workload-runtime adapter.
type Runtime struct {
	client        Client
	changeTimeout time.Duration
}

// NewRuntime returns a Runtime speaking to the configured socket.
func NewRuntime(config Config) (*Runtime, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	pebble, err := client.New(&client.Config{Socket: config.Socket})
	if err != nil {
		return nil, errors.Annotate(err, "creating runtime client")
	}
	return NewRuntimeForClient(pebble, config.ChangeTimeout), nil
}

// NewRuntimeForClient returns a Runtime over an existing client.
func NewRuntimeForClient(pebble Client, changeTimeout time.Duration) *Runtime {
	return &Runtime{client: pebble, changeTimeout: changeTimeout}
}

// CanConnect reports whether the runtime answers on its socket. The
// answer is advisory only; the runtime may vanish between this call
// and the next.
func (r *Runtime) CanConnect() bool {
	if _, err := r.client.SysInfo(); err != nil {
		logger.Debugf("runtime not reachable: %v", err)
		return false
	}
	return true
}

// Push writes content to path in the workload, creating any missing
// parent directories.
func (r *Runtime) Push(path, content string) error {
	err := r.client.Push(&client.PushOptions{
		Source:   strings.NewReader(content),
		Path:     path,
		MakeDirs: true,
	})
	if err != nil {
		return errors.Annotatef(err, "pushing %q", path)
	}
	logger.Infof("wrote file to workload: %s", path)
	return nil
}

// Exists reports whether path exists in the workload.
func (r *Runtime) Exists(path string) (bool, error) {
	_, err := r.client.ListFiles(&client.ListFilesOptions{
		Path:   path,
		Itself: true,
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Annotatef(err, "stating %q", path)
	}
	return true, nil
}

// AddLayer merges the layer into the workload plan under the given
// label. Applying an identical layer again is a no-op server-side.
func (r *Runtime) AddLayer(label string, layer Layer) error {
	data, err := layer.MarshalBytes()
	if err != nil {
		return errors.Trace(err)
	}
	err = r.client.AddLayer(&client.AddLayerOptions{
		Combine:   true,
		Label:     label,
		LayerData: data,
	})
	return errors.Annotatef(err, "adding layer %q", label)
}

// Replan brings running services in line with the current plan and
// waits for the resulting change to settle.
func (r *Runtime) Replan() error {
	changeID, err := r.client.Replan(&client.ServiceOptions{})
	if err != nil {
		return errors.Annotate(err, "replanning services")
	}
	return errors.Trace(r.waitChange(changeID))
}

// Restart restarts the named services and waits for the resulting
// change to settle.
func (r *Runtime) Restart(names ...string) error {
	changeID, err := r.client.Restart(&client.ServiceOptions{Names: names})
	if err != nil {
		return errors.Annotatef(err, "restarting %v", names)
	}
	return errors.Trace(r.waitChange(changeID))
}

// ServiceRunning reports whether the named service is in the plan and
// currently active. A service the plan does not know is simply not
// running.
func (r *Runtime) ServiceRunning(name string) (bool, error) {
	infos, err := r.client.Services(&client.ServicesOptions{Names: []string{name}})
	if err != nil {
		return false, errors.Annotatef(err, "querying service %q", name)
	}
	for _, info := range infos {
		if info.Name == name {
			return info.Current == client.StatusActive, nil
		}
	}
	return false, nil
}

func (r *Runtime) waitChange(changeID string) error {
	change, err := r.client.WaitChange(changeID, &client.WaitChangeOptions{
		Timeout: r.changeTimeout,
	})
	if err != nil {
		return errors.Annotatef(err, "waiting for change %q", changeID)
	}
	if change.Err != "" {
		return errors.Errorf("change %q failed: %s", changeID, change.Err)
	}
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var clientErr *client.Error
	if stderrors.As(err, &clientErr) {
		return clientErr.StatusCode == http.StatusNotFound
	}
	return false
}
