// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package statedir

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/worker/v4/catacomb"

	"github.com/canonical/oai-udr-operator/core/relation"
)

// ChangeKind classifies a state-directory change.
type ChangeKind string

const (
	// ConfigChanged reports a configuration attributes change.
	ConfigChanged ChangeKind = "config"

	// LeadershipChanged reports the leadership marker appearing,
	// changing or vanishing.
	LeadershipChanged ChangeKind = "leadership"

	// RelationChanged reports a platform-written relation file
	// appearing, changing or vanishing.
	RelationChanged ChangeKind = "relation"
)

// DefaultCoalesce is a reasonable quiet window for collapsing the
// event bursts a single logical write produces.
const DefaultCoalesce = 20 * time.Millisecond

// Change describes one observed state-directory change. Changes carry
// no payload: consumers re-read the directory, so a collapsed or
// repeated change at worst costs one redundant pass.
type Change struct {
	Kind     ChangeKind
	Endpoint string
	ID       relation.ID
}

// WatcherConfig holds the dependencies of a Watcher.
type WatcherConfig struct {
	Dir   *StateDir
	Clock clock.Clock

	// Coalesce is the quiet window after a filesystem event during
	// which further events merge into the same batch.
	Coalesce time.Duration
}

// Validate returns an error if the config cannot drive a Watcher.
func (config WatcherConfig) Validate() error {
	if config.Dir == nil {
		return errors.NotValidf("nil Dir")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Coalesce <= 0 {
		return errors.NotValidf("non-positive Coalesce")
	}
	return nil
}

// Watcher surfaces state-directory changes as a stream. It watches the
// directory root and every relation endpoint directory, ignoring the
// operator's own outbound files so self-writes never loop back as
// events. A single logical write tends to arrive as several filesystem
// events; the watcher holds changes for a quiet window and collapses
// duplicates before delivery.
type Watcher struct {
	catacomb catacomb.Catacomb
	config   WatcherConfig
	fsw      *fsnotify.Watcher
	out      chan Change
}

// NewWatcher returns a running Watcher over the given state directory.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Annotate(err, "creating filesystem watcher")
	}
	w := &Watcher{
		config: config,
		fsw:    fsw,
		out:    make(chan Change),
	}
	if err := w.watchTree(); err != nil {
		_ = fsw.Close()
		return nil, errors.Trace(err)
	}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		_ = fsw.Close()
		return nil, errors.Trace(err)
	}
	return w, nil
}

// Kill is part of the worker.Worker interface.
func (w *Watcher) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Watcher) Wait() error {
	return w.catacomb.Wait()
}

// Changes returns the stream of observed changes. The channel is
// unbuffered; an unconsumed change blocks delivery, never drops.
func (w *Watcher) Changes() <-chan Change {
	return w.out
}

// watchTree registers watches on the root, the relation tree and every
// endpoint directory that already exists.
func (w *Watcher) watchTree() error {
	dir := w.config.Dir
	if err := w.fsw.Add(dir.Path()); err != nil {
		return errors.Annotate(err, "watching state directory")
	}
	if err := w.fsw.Add(dir.RelationsPath()); err != nil {
		return errors.Annotate(err, "watching relation tree")
	}
	endpoints, err := os.ReadDir(dir.RelationsPath())
	if err != nil {
		return errors.Annotate(err, "reading relation tree")
	}
	for _, entry := range endpoints {
		if !entry.IsDir() {
			continue
		}
		if err := w.fsw.Add(filepath.Join(dir.RelationsPath(), entry.Name())); err != nil {
			return errors.Annotatef(err, "watching relation endpoint %q", entry.Name())
		}
	}
	return nil
}

func (w *Watcher) loop() error {
	defer func() { _ = w.fsw.Close() }()

	var (
		pending []Change
		flush   <-chan time.Time
	)
	for {
		var out chan Change
		var next Change
		if len(pending) > 0 && flush == nil {
			out = w.out
			next = pending[0]
		}
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("filesystem watcher closed")
			}
			changes, err := w.classify(ev)
			if err != nil {
				return errors.Trace(err)
			}
			if len(changes) == 0 {
				continue
			}
			pending = mergeChanges(pending, changes)
			if flush == nil {
				flush = w.config.Clock.After(w.config.Coalesce)
			}
		case <-flush:
			flush = nil
		case out <- next:
			pending = pending[1:]
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("filesystem watcher closed")
			}
			return errors.Annotate(err, "watching state directory")
		}
	}
}

func (w *Watcher) classify(ev fsnotify.Event) ([]Change, error) {
	if ev.Op == fsnotify.Chmod {
		return nil, nil
	}
	rel, err := filepath.Rel(w.config.Dir.Path(), ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, nil
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	switch {
	case rel == ConfigFile:
		if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
			return []Change{{Kind: ConfigChanged}}, nil
		}
	case rel == LeaderFile:
		return []Change{{Kind: LeadershipChanged}}, nil
	case len(parts) == 2 && parts[0] == RelationsDir:
		if ev.Has(fsnotify.Create) {
			return w.watchEndpoint(parts[1])
		}
	case len(parts) == 3 && parts[0] == RelationsDir:
		if id, ok := relationFileID(parts[2]); ok {
			return []Change{{
				Kind:     RelationChanged,
				Endpoint: parts[1],
				ID:       id,
			}}, nil
		}
	}
	return nil, nil
}

// watchEndpoint starts watching a newly created endpoint directory and
// reports any relation files that landed before the watch was in
// place.
func (w *Watcher) watchEndpoint(endpointName string) ([]Change, error) {
	path := filepath.Join(w.config.Dir.RelationsPath(), endpointName)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, nil
	}
	if err := w.fsw.Add(path); err != nil {
		return nil, errors.Annotatef(err, "watching relation endpoint %q", endpointName)
	}
	files, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Annotatef(err, "reading relation endpoint %q", endpointName)
	}
	var changes []Change
	for _, file := range files {
		if id, ok := relationFileID(file.Name()); ok {
			changes = append(changes, Change{
				Kind:     RelationChanged,
				Endpoint: endpointName,
				ID:       id,
			})
		}
	}
	return changes, nil
}

// mergeChanges appends changes to pending, dropping exact duplicates
// already queued.
func mergeChanges(pending, changes []Change) []Change {
	for _, change := range changes {
		duplicate := false
		for _, queued := range pending {
			if queued == change {
				duplicate = true
				break
			}
		}
		if !duplicate {
			pending = append(pending, change)
		}
	}
	return pending
}
