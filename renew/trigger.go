// Package renew implements the synchronous renewal trigger: the steps
// `acme renew <certname>` runs before a state-machine task ever exists.
// Everything here is synchronous and fast (a store lookup, a key
// generation, a CSR build); the only asynchronous part of a renewal,
// acme.Drive, begins only after Trigger returns successfully.
package renew

import (
	"context"
	"fmt"

	"github.com/haproxytech/acme-core/acme"
	"github.com/haproxytech/acme-core/acme/client"
	"github.com/haproxytech/acme-core/acme/keys"
	acmenet "github.com/haproxytech/acme-core/net"
	"github.com/haproxytech/acme-core/store"
	"github.com/haproxytech/acme-core/task"

	log "github.com/sirupsen/logrus"
)

// SetupError reports a failure in the synchronous portion of a renewal
// trigger: the store lock was busy, the certificate was unknown or
// unbound, or leaf key/CSR generation failed. No task is spawned when a
// SetupError is returned; the caller (the CLI) surfaces it directly.
type SetupError struct {
	Certname string
	Reason   string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("acme renew %q: %s", e.Certname, e.Reason)
}

// Trigger runs the eight synchronous-then-spawn steps of a renewal:
//  1. lock the store (store.Store.BeginRenewal's try-lock),
//  2. require the live entry to carry an ACME binding naming a known
//     acme_cfg,
//  3. duplicate the entry,
//  4. unlock (BeginRenewal releases the lock before returning),
//  5. allocate the acme_ctx,
//  6. generate a fresh leaf key honoring the acme_cfg's key policy,
//  7. build the CSR from the key and the entry's DNS names,
//  8. spawn the state-machine task and let it run to completion or
//     exhausted retries.
//
// Any failure before step 8 returns a *SetupError without spawning
// anything; the duplicate entry, the key, and the ctx are simply
// discarded by the garbage collector.
func Trigger(rt *task.Runtime, st *store.Store, reg map[string]*acme.Config, n *acmenet.ACMENet, certname string) error {
	if certname == "" {
		return &SetupError{Certname: certname, Reason: "missing argument"}
	}

	entry, cfgName, err := st.BeginRenewal(certname)
	if err != nil {
		return &SetupError{Certname: certname, Reason: err.Error()}
	}

	cfg, ok := reg[cfgName]
	if !ok {
		return &SetupError{Certname: certname, Reason: fmt.Sprintf("bound acme config %q no longer exists", cfgName)}
	}

	names := entry.Names
	if len(names) == 0 {
		return &SetupError{Certname: certname, Reason: "cannot generate CSR: no DNS names on file for this certificate"}
	}

	leafKey, err := keys.NewLeafKey(cfg.LeafPolicy)
	if err != nil {
		return &SetupError{Certname: certname, Reason: fmt.Sprintf("key generation failed: %s", err)}
	}

	if _, err := client.BuildCSR(names, leafKey); err != nil {
		return &SetupError{Certname: certname, Reason: fmt.Sprintf("cannot generate CSR: %s", err)}
	}

	ctx := acme.NewCtx(cfg, names, leafKey, n)

	log.WithFields(log.Fields{"cert": certname, "config": cfgName}).Info("renewal triggered")

	rt.Spawn(certname, func(goCtx context.Context) error {
		return acme.Drive(goCtx, ctx, st)
	})

	return nil
}
