// Command acme-core is a standalone demonstration of the embedded ACMEv2
// client: it loads `acme` stanzas from a config file, builds a store bound
// to them, and serves the `acme renew <certname>` CLI against it. A real
// embedding proxy owns the rest of its config file and its own store; this
// binary exists to exercise the module on its own.
package main

import (
	"context"
	"os"
	"time"

	"github.com/haproxytech/acme-core/cli"
	"github.com/haproxytech/acme-core/cmd"
	"github.com/haproxytech/acme-core/config"
	acmenet "github.com/haproxytech/acme-core/net"
	"github.com/haproxytech/acme-core/store"
	"github.com/haproxytech/acme-core/task"

	log "github.com/sirupsen/logrus"
)

const experimentalACMEOptIn = true

func main() {
	configPath := os.Getenv("ACME_CORE_CONFIG")
	if configPath == "" {
		configPath = "acme.cfg"
	}

	f, err := os.Open(configPath)
	cmd.FailOnError(err, "opening config file")
	defer f.Close()

	sections, err := config.Parse(f)
	cmd.FailOnError(err, "parsing acme config stanzas")

	reg, err := config.Build(sections, experimentalACMEOptIn)
	cmd.FailOnError(err, "building acme configs")

	// A config stanza names an ACME identity, not the DNS names it
	// renews: those live wherever the host proxy's own store learned them
	// when the certificate was first loaded, which config file parsing is
	// explicitly not this module's concern. This demo binary stands in
	// for that by treating the stanza name itself as the sole DNS name.
	st := store.New()
	for name := range reg.Configs {
		err := st.BindACMEConfig(name, name, []string{name})
		cmd.FailOnError(err, "binding acme config to store")
	}

	n, err := acmenet.New(acmenet.Config{Timeout: 30 * time.Second})
	cmd.FailOnError(err, "building ACME HTTP transport")

	rt := task.NewRuntime(context.Background())

	root := cli.NewRootCmd(rt, st, reg.Configs, n)

	go cmd.CatchSignals(func() {
		log.Info("shutting down, waiting for in-flight renewals")
		rt.Shutdown()
	})

	if err := root.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}

	rt.Wait()
}
