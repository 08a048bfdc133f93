package acme

import (
	"crypto"

	"github.com/haproxytech/acme-core/acme/client"
	"github.com/haproxytech/acme-core/acme/resources"
	acmenet "github.com/haproxytech/acme-core/net"
)

// Ctx is acme_ctx: the full mutable state of one in-flight renewal. A Ctx
// is created fresh for every renewal attempt, referenced by its Config but
// never sharing mutable state with any other Ctx: there is no nonce pool,
// account cache, or order cache shared across renewals. It is destroyed
// (eligible for GC) when Drive returns, whether that is success or
// exhausted retries.
type Ctx struct {
	// Cfg is the acme_cfg this renewal runs under. Referenced, never
	// owned or mutated.
	Cfg *Config

	// Names are the identifiers (DNS names) this renewal requests a
	// certificate for. Names[0] becomes the CSR's CommonName.
	Names []string

	// LeafKey is the freshly generated private key the CSR is built from.
	// It is never the account key.
	LeafKey crypto.Signer

	// State and Phase together form the two-axis state: which protocol
	// step, and whether its request has been sent yet.
	State State
	Phase HTTPPhase

	// Nonce is the most recently observed anti-replay nonce. Every POST
	// consumes it and every response (success or problem document)
	// carrying a Replay-Nonce header replaces it.
	Nonce string
	// KID is the account URL returned by newAccount's Location header.
	// Empty until CHKACCOUNT/NEWACCOUNT completes; once set, every
	// subsequent JWS uses it instead of embedding the account JWK.
	KID string

	// Directory is fetched once, in RESOURCES.
	Directory *client.Directory
	// Order is the order resource, refreshed as CHKORDER polls it.
	Order *resources.Order
	// OrderURL is the order's own URL (the newOrder response's Location
	// header), distinct from Order.ID which mirrors it once parsed.
	OrderURL string

	// Auths is the head of the singly linked list of pending
	// authorizations built from Order.Authorizations. NextAuth is always
	// nil or a node reachable from Auths; it is the cursor the AUTH,
	// CHALLENGE and CHKCHALLENGE states advance together.
	Auths    *AuthNode
	NextAuth *AuthNode

	// CSR is the DER-encoded certificate signing request built once all
	// authorizations are valid, just before FINALIZE.
	CSR []byte
	// CertPEM is the certificate chain downloaded in CERTIFICATE.
	CertPEM []byte

	// RetryBudget counts down on every step failure (including polling
	// attempts that fail). The renewal aborts when it reaches zero.
	RetryBudget int

	// LastErr is the most recent step error, surfaced in the renewal's
	// final log line if the retry budget is exhausted.
	LastErr error

	net *acmenet.ACMENet
}

// NewCtx builds a fresh Ctx for one renewal attempt of names under cfg.
// leafKey is the key the caller has already generated per cfg.LeafPolicy
// (see renew.Trigger); it is never read from disk.
func NewCtx(cfg *Config, names []string, leafKey crypto.Signer, n *acmenet.ACMENet) *Ctx {
	return &Ctx{
		Cfg:         cfg,
		Names:       names,
		LeafKey:     leafKey,
		State:       RESOURCES,
		Phase:       REQ,
		RetryBudget: cfg.RetryBudget,
		net:         n,
	}
}

// retry rewinds to REQ for the current state and decrements the retry
// budget on any step failure. It returns false once the budget is
// exhausted, at which point Drive must abort.
func (c *Ctx) retry(err error) bool {
	c.LastErr = err
	c.Phase = REQ
	c.RetryBudget--
	return c.RetryBudget > 0
}

// advance moves to the next state and resets the HTTP phase to REQ, the
// "self-wake" step of the two-axis model.
func (c *Ctx) advance(next State) {
	c.State = next
	c.Phase = REQ
}
