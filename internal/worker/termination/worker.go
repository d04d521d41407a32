// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package termination turns process termination signals into worker
// death, so an agent supervising its workers with a runner can treat
// SIGINT and SIGTERM as one more fatal error.
package termination

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/worker/v4/catacomb"
)

var logger = loggo.GetLogger("udroperator.worker.termination")

// ErrTerminate is how the worker reports a caught termination signal.
const ErrTerminate = errors.ConstError("agent should be terminated")

// Worker waits for a termination signal.
type Worker struct {
	catacomb catacomb.Catacomb
	signals  chan os.Signal
}

// NewWorker returns a worker that dies with ErrTerminate when the
// process receives SIGINT or SIGTERM.
func NewWorker() (*Worker, error) {
	w := &Worker{signals: make(chan os.Signal, 1)}
	signal.Notify(w.signals, syscall.SIGINT, syscall.SIGTERM)
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		signal.Stop(w.signals)
		return nil, errors.Trace(err)
	}
	return w, nil
}

// Kill is part of the worker.Worker interface.
func (w *Worker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.catacomb.Wait()
}

func (w *Worker) loop() error {
	defer signal.Stop(w.signals)
	select {
	case sig := <-w.signals:
		logger.Infof("caught %v", sig)
		return ErrTerminate
	case <-w.catacomb.Dying():
		return w.catacomb.ErrDying()
	}
}
