package acme

import (
	"crypto"
	"fmt"
	"time"

	"github.com/haproxytech/acme-core/acme/keys"
)

// Config is acme_cfg: the static, read-only-after-load configuration for
// one named `acme <name> { ... }` stanza. One Config is shared by every
// renewal triggered for its certname; a Config is never mutated once built.
type Config struct {
	// Name is the stanza name, e.g. the `<name>` in `acme <name> { ... }`.
	Name string
	// Directory is the ACME server's directory URL.
	Directory string
	// Contact holds the `mailto:`-prefixed contact URLs sent with
	// newAccount.
	Contact []string
	// AccountKeyPath is the filesystem path to the existing PEM-encoded
	// account private key. This module never writes to this path; the key
	// must already exist before a renewal using this Config can start.
	AccountKeyPath string
	// Challenge is the challenge type this Config's renewals solve:
	// CHALLENGE_HTTP01 or CHALLENGE_DNS01.
	Challenge string
	// LeafPolicy controls the freshly generated per-renewal leaf key.
	LeafPolicy keys.LeafPolicy
	// RetryBudget bounds the number of step failures a renewal tolerates
	// before abandoning (ACME_RETRY). Zero means DEFAULT_RETRY_BUDGET.
	RetryBudget int
	// HTTPTimeout records the stanza's `timeout` directive. The driver does
	// not apply it: request timeouts come from the net.Config the shared
	// ACMENet was built with.
	HTTPTimeout time.Duration

	// accountKey is loaded lazily by Validate and cached so every renewal
	// using this Config reuses the same in-memory signer.
	accountKey crypto.Signer
}

// Validate checks the Config is complete and loads the account key from
// disk, caching it for reuse by every renewal. It is called once, by the
// config loader, after parsing and before the Config is placed in a
// Registry. It never generates or writes an account key: AccountKeyPath
// must already name an existing, readable PEM file.
func (c *Config) Validate() error {
	if c.Name == "" {
		return &ConfigError{Stanza: c.Name, Reason: "missing name"}
	}
	if c.Directory == "" {
		return &ConfigError{Stanza: c.Name, Reason: "missing directory url"}
	}
	if len(c.Contact) == 0 {
		return &ConfigError{Stanza: c.Name, Reason: "missing contact"}
	}
	if c.AccountKeyPath == "" {
		return &ConfigError{Stanza: c.Name, Reason: "missing account key path"}
	}
	switch c.Challenge {
	case CHALLENGE_HTTP01, CHALLENGE_DNS01:
	case "":
		c.Challenge = CHALLENGE_HTTP01
	default:
		return &ConfigError{Stanza: c.Name, Reason: fmt.Sprintf("unsupported challenge type %q", c.Challenge)}
	}
	if c.RetryBudget == 0 {
		c.RetryBudget = DEFAULT_RETRY_BUDGET
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if (c.LeafPolicy == keys.LeafPolicy{}) {
		c.LeafPolicy = keys.DefaultLeafPolicy()
	}

	signer, err := keys.LoadAccountKeyPEM(c.AccountKeyPath)
	if err != nil {
		return &ConfigError{Stanza: c.Name, Reason: err.Error()}
	}
	c.accountKey = signer
	return nil
}

// AccountKey returns the cached account signer loaded by Validate. It
// panics if called before Validate succeeds, since every Config reaching a
// Registry must already be valid.
func (c *Config) AccountKey() crypto.Signer {
	if c.accountKey == nil {
		panic("acme: Config.AccountKey called before Validate")
	}
	return c.accountKey
}
