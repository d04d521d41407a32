// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// The udr-operator agent reconciles an OAI 5G UDR workload against the
// state directory its platform maintains. It runs next to the workload
// container, watches the directory for configuration, leadership and
// relation changes, and drives the workload runtime over its socket.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"github.com/juju/lumberjack/v2"
	"github.com/juju/mutex/v2"
	"github.com/juju/retry"
	"github.com/juju/worker/v4"

	"github.com/canonical/oai-udr-operator/agent"
	"github.com/canonical/oai-udr-operator/internal/pebbleclient"
	"github.com/canonical/oai-udr-operator/internal/statedir"
	"github.com/canonical/oai-udr-operator/internal/worker/operator"
	"github.com/canonical/oai-udr-operator/internal/worker/termination"
	"github.com/canonical/oai-udr-operator/version"
)

var logger = loggo.GetLogger("udroperator.cmd")

const defaultDataDir = "/var/lib/udr-operator"

// restartDelay is how long the runner waits before restarting the
// operator worker after a failure. A failing worker crash-loops at
// this cadence rather than taking the agent down.
const restartDelay = 3 * time.Second

func main() {
	os.Exit(Main(os.Args[1:]))
}

// Main runs the agent and returns the process exit code.
func Main(args []string) int {
	f := gnuflag.NewFlagSet("udr-operator", gnuflag.ContinueOnError)
	dataDir := f.String("data-dir", defaultDataDir, "directory holding the agent's state")
	showVersion := f.Bool("version", false, "print the agent version and exit")
	if err := f.Parse(true, args); err != nil {
		if err == gnuflag.ErrHelp {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintln(os.Stdout, version.Current)
		return 0
	}
	if err := run(*dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "udr-operator: %v\n", err)
		return 1
	}
	return 0
}

func run(dataDir string) error {
	config, err := waitForConfig(dataDir)
	if err != nil {
		return errors.Trace(err)
	}
	if err := setupLogging(dataDir, config.LoggingConfig); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("udr-operator %s starting for %s/%s", version.Current, config.Model, config.Application)

	// Hold a machine-wide mutex so a restarting supervisor cannot race
	// two agents over one state directory.
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:  "udr-operator",
		Clock: clock.WallClock,
		Delay: 250 * time.Millisecond,
	})
	if err != nil {
		return errors.Annotate(err, "acquiring agent mutex")
	}
	defer releaser.Release()

	dir := statedir.New(dataDir)
	if err := dir.Ensure(); err != nil {
		return errors.Trace(err)
	}
	if err := dir.WriteVersion(version.Current.String()); err != nil {
		return errors.Trace(err)
	}
	runtime, err := pebbleclient.NewRuntime(config.PebbleConfig())
	if err != nil {
		return errors.Trace(err)
	}

	runner := worker.NewRunner(worker.RunnerParams{
		IsFatal:      func(err error) bool { return errors.Is(err, termination.ErrTerminate) },
		Clock:        clock.WallClock,
		RestartDelay: restartDelay,
		Logger:       logger,
	})
	if err := runner.StartWorker("termination", func() (worker.Worker, error) {
		return termination.NewWorker()
	}); err != nil {
		return errors.Trace(err)
	}
	if err := runner.StartWorker("operator", func() (worker.Worker, error) {
		return operator.NewOperator(operator.Config{
			Dir: dir,
			NewWatcher: func() (operator.ChangeWatcher, error) {
				return statedir.NewWatcher(statedir.WatcherConfig{
					Dir:      dir,
					Clock:    clock.WallClock,
					Coalesce: statedir.DefaultCoalesce,
				})
			},
			Runtime:           runtime,
			Clock:             clock.WallClock,
			Application:       config.Application,
			Model:             config.Model,
			Mode:              config.Mode,
			RequeueDelay:      time.Duration(config.RequeueDelay),
			ReadyPollInterval: time.Duration(config.ReadyPollInterval),
		})
	}); err != nil {
		return errors.Trace(err)
	}

	err = runner.Wait()
	if errors.Is(err, termination.ErrTerminate) {
		logger.Infof("terminated by signal")
		return nil
	}
	return errors.Trace(err)
}

// waitForConfig reads the agent configuration, waiting for the
// platform to write it on a fresh deployment.
func waitForConfig(dataDir string) (agent.Config, error) {
	var config agent.Config
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			config, err = agent.ReadConfig(dataDir)
			return err
		},
		IsFatalError: func(err error) bool {
			return !errors.Is(err, errors.NotFound)
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Debugf("agent configuration not ready (attempt %d): %v", attempt, err)
		},
		Attempts: 60,
		Delay:    time.Second,
		Clock:    clock.WallClock,
	})
	return config, errors.Trace(err)
}

// setupLogging sends the log to a rotated file under the data
// directory as well as stderr, then applies the configured levels.
func setupLogging(dataDir, loggingConfig string) error {
	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(dataDir, "logs", "udr-operator.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 2,
		Compress:   true,
	}
	writer := loggo.NewSimpleWriter(logFile, loggo.DefaultFormatter)
	if err := loggo.RegisterWriter("logfile", writer); err != nil {
		return errors.Annotate(err, "registering log file writer")
	}
	return errors.Annotate(loggo.ConfigureLoggers(loggingConfig), "configuring loggers")
}
