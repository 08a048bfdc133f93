// Package cli wires the acme-core renewal trigger to a cobra command tree.
// It translates the handful of synchronous failures a renewal trigger can
// raise into the diagnostic strings an operator sees at the terminal.
package cli

import (
	"fmt"

	"github.com/haproxytech/acme-core/acme"
	acmenet "github.com/haproxytech/acme-core/net"
	"github.com/haproxytech/acme-core/renew"
	"github.com/haproxytech/acme-core/store"
	"github.com/haproxytech/acme-core/task"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the `acme` command tree. st and reg are shared with
// whatever else in the host process populates the store and loads config;
// the CLI only ever reads them.
func NewRootCmd(rt *task.Runtime, st *store.Store, reg map[string]*acme.Config, n *acmenet.ACMENet) *cobra.Command {
	root := &cobra.Command{
		Use:           "acme",
		Short:         "Drive ACMEv2 certificate renewals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRenewCmd(rt, st, reg, n))
	return root
}

func newRenewCmd(rt *task.Runtime, st *store.Store, reg map[string]*acme.Config, n *acmenet.ACMENet) *cobra.Command {
	return &cobra.Command{
		Use:   "renew <certname>",
		Short: "Trigger a renewal for a live certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// renew.Trigger's error is always a *renew.SetupError, already
			// carrying one of the diagnostics an operator expects: missing
			// argument, store lock busy, unknown certificate, a certificate
			// not bound to any ACME configuration, or a key/CSR generation
			// failure. Nothing to translate, just surface it.
			if err := renew.Trigger(rt, st, reg, n, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renewal of %q triggered\n", args[0])
			return nil
		},
	}
}
