// Package cmd provides common command line helpers shared by the
// acme-core binaries.
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// FailOnError logs msg and err at fatal level and exits the process. It is
// only used for unrecoverable startup failures (bad config, unreadable
// account key) where there is no caller left to hand the error back to.
func FailOnError(err error, msg string) {
	if err == nil {
		return
	}
	log.WithError(err).Fatal(msg)
}

var signalToName = map[os.Signal]string{
	syscall.SIGTERM: "SIGTERM",
	syscall.SIGINT:  "SIGINT",
	syscall.SIGHUP:  "SIGHUP",
}

// CatchSignals blocks until SIGTERM, SIGINT or SIGHUP arrives, then runs
// callback before exiting. Renewals already in flight are given no special
// grace period here; that is task.Runtime's job.
func CatchSignals(callback func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	signal.Notify(sigChan, syscall.SIGINT)
	signal.Notify(sigChan, syscall.SIGHUP)

	sig := <-sigChan
	log.WithField("signal", signalToName[sig]).Info("caught signal")

	if callback != nil {
		callback()
	}

	log.Info("exiting")
	os.Exit(0)
}
