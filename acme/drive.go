package acme

import (
	"context"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/haproxytech/acme-core/acme/client"
	"github.com/haproxytech/acme-core/acme/keys"
	"github.com/haproxytech/acme-core/acme/resources"
	"github.com/haproxytech/acme-core/store"

	log "github.com/sirupsen/logrus"
)

// leafKeyPEM renders the renewal's leaf key as a PEM block suitable for
// store.Store.Swap, which expects the same certPEM/keyPEM shape
// tls.X509KeyPair takes.
func leafKeyPEM(signer crypto.Signer) ([]byte, error) {
	pemStr, err := keys.SignerToPEM(signer)
	if err != nil {
		return nil, err
	}
	return []byte(pemStr), nil
}

// Drive runs the order state machine to completion: it loops over Ctx's
// states, issuing exactly one HTTP step per visit and suspending on that
// step's result channel, until the certificate is installed (END) or the
// retry budget is exhausted. It is meant to be the sole function run on
// the goroutine a task.Runtime spawns for one renewal.
func Drive(goCtx context.Context, c *Ctx, st *store.Store) error {
	log := log.WithFields(log.Fields{"cert": c.Cfg.Name, "names": strings.Join(c.Names, ",")})

	for c.State != END {
		select {
		case <-goCtx.Done():
			return goCtx.Err()
		default:
		}

		log.WithFields(log.Fields{"state": c.State.String(), "attempt": c.Cfg.RetryBudget - c.RetryBudget + 1}).Debug("driving order state")

		err := c.visit(goCtx, st)
		if err == nil {
			continue
		}

		// Both transient and non-transient ProtocolErrors consume the
		// retry budget the same way; Transient only exists to classify
		// the failure, never to skip the budget.
		if !c.retry(err) {
			log.WithError(err).Error("renewal aborted: retry budget exhausted")
			return fmt.Errorf("acme: renewal of %q abandoned after repeated failures: %w", c.Cfg.Name, err)
		}
		log.WithError(err).Warn("step failed, retrying")
	}

	log.Info("renewal completed")
	return nil
}

// visit issues and processes exactly one HTTP step for c.State, advancing
// c.State (or, for AUTH/CHALLENGE/CHKCHALLENGE, moving to the next
// AuthNode) on success. A non-nil return means the step failed; the caller
// retries it against the retry budget whatever the error's transience.
func (c *Ctx) visit(goCtx context.Context, st *store.Store) error {
	switch c.State {
	case RESOURCES:
		return c.stepResources(goCtx)
	case NEWNONCE:
		return c.stepNewNonce(goCtx)
	case CHKACCOUNT:
		return c.stepCheckAccount(goCtx)
	case NEWACCOUNT:
		return c.stepNewAccount(goCtx)
	case NEWORDER:
		return c.stepNewOrder(goCtx)
	case AUTH:
		return c.stepAuth(goCtx)
	case CHALLENGE:
		return c.stepChallenge(goCtx)
	case CHKCHALLENGE:
		return c.stepCheckChallenge(goCtx)
	case FINALIZE:
		return c.stepFinalize(goCtx)
	case CHKORDER:
		return c.stepCheckOrder(goCtx)
	case CERTIFICATE:
		return c.stepCertificate(goCtx, st)
	default:
		return fmt.Errorf("acme: unknown state %v", c.State)
	}
}

// do issues one signed (or plain GET) HTTP step and blocks on its result,
// rotating c.Nonce from whatever the response carried. This is the single
// suspension point the two-axis model describes: Phase is set to RES
// before the blocking receive and back to REQ once it returns.
func (c *Ctx) do(goCtx context.Context, method, url string, payload []byte, embedKey bool) (*client.StepResult, error) {
	var body []byte
	if method == http.MethodPost {
		opts := client.SignOptions{Signer: c.Cfg.AccountKey(), Nonce: c.Nonce}
		if embedKey || c.KID == "" {
			opts.EmbedKey = true
		} else {
			opts.KeyID = c.KID
		}
		signed, err := client.Sign(url, payload, opts)
		if err != nil {
			return nil, err
		}
		body = signed.SerializedJWS
	}

	c.Phase = RES
	result := <-client.Issue(goCtx, c.net, method, url, body)
	c.Phase = REQ

	if nonce := result.Nonce(); nonce != "" {
		c.Nonce = nonce
	}
	if result.Err != nil {
		return nil, &ProtocolError{State: c.State, URL: url, Cause: result.Err, Transient: true}
	}
	if result.Response.StatusCode >= 400 {
		var problem resources.Problem
		_ = result.Problem(&problem)
		return &result, problemErrorFromResponse(c.State, url, result.Response.StatusCode, &problem)
	}
	return &result, nil
}

func (c *Ctx) stepResources(goCtx context.Context) error {
	dir, err := client.FetchDirectory(c.net, c.Cfg.Directory)
	if err != nil {
		return &ProtocolError{State: c.State, URL: c.Cfg.Directory, Cause: err, Transient: true}
	}
	c.Directory = dir
	c.advance(NEWNONCE)
	return nil
}

func (c *Ctx) stepNewNonce(goCtx context.Context) error {
	nonce, err := client.FetchNewNonce(c.net, c.Directory.NewNonce)
	if err != nil {
		return &ProtocolError{State: c.State, URL: c.Directory.NewNonce, Cause: err, Transient: true}
	}
	c.Nonce = nonce
	c.advance(CHKACCOUNT)
	return nil
}

func (c *Ctx) stepCheckAccount(goCtx context.Context) error {
	payload, _ := json.Marshal(struct {
		OnlyReturnExisting bool `json:"onlyReturnExisting"`
	}{true})

	result, err := c.do(goCtx, http.MethodPost, c.Directory.NewAccount, payload, true)
	if err != nil {
		if pe, ok := err.(*ProtocolError); ok && pe.ACMEType == ERR_ACCOUNT_DOES_NOT_EXIST {
			c.advance(NEWACCOUNT)
			return nil
		}
		return err
	}
	c.KID = result.Response.Header.Get(LOCATION_HEADER)
	if c.KID == "" {
		return &ProtocolError{State: c.State, URL: c.Directory.NewAccount, Transient: false,
			ACMEDetail: "newAccount response carried no Location header"}
	}
	c.advance(NEWORDER)
	return nil
}

func (c *Ctx) stepNewAccount(goCtx context.Context) error {
	payload, _ := json.Marshal(struct {
		TermsOfServiceAgreed bool     `json:"termsOfServiceAgreed"`
		Contact              []string `json:"contact,omitempty"`
	}{true, c.Cfg.Contact})

	result, err := c.do(goCtx, http.MethodPost, c.Directory.NewAccount, payload, true)
	if err != nil {
		return err
	}
	c.KID = result.Response.Header.Get(LOCATION_HEADER)
	if c.KID == "" {
		return &ProtocolError{State: c.State, URL: c.Directory.NewAccount, Transient: false,
			ACMEDetail: "newAccount response carried no Location header"}
	}
	c.advance(NEWORDER)
	return nil
}

func (c *Ctx) stepNewOrder(goCtx context.Context) error {
	idents := make([]resources.Identifier, len(c.Names))
	for i, n := range c.Names {
		idents[i] = resources.Identifier{Type: "dns", Value: n}
	}
	payload, _ := json.Marshal(struct {
		Identifiers []resources.Identifier `json:"identifiers"`
	}{idents})

	result, err := c.do(goCtx, http.MethodPost, c.Directory.NewOrder, payload, false)
	if err != nil {
		return err
	}
	var order resources.Order
	if err := json.Unmarshal(result.Body, &order); err != nil {
		return &ProtocolError{State: c.State, URL: c.Directory.NewOrder, Cause: err, Transient: false}
	}
	order.ID = result.Response.Header.Get(LOCATION_HEADER)
	c.Order = &order
	c.OrderURL = order.ID
	c.Auths = BuildAuthChain(&order)
	c.NextAuth = c.Auths
	c.advance(AUTH)
	return nil
}

// stepAuth fetches the next pending authorization and records the
// challenge matching cfg.Challenge. The linear scan over Challenges
// matches spec's "first entry whose type equals cfg.challenge wins".
func (c *Ctx) stepAuth(goCtx context.Context) error {
	if c.NextAuth == nil {
		c.advance(CHALLENGE)
		c.NextAuth = c.Auths
		return nil
	}

	result, err := c.do(goCtx, http.MethodPost, c.NextAuth.AuthURL, nil, false)
	if err != nil {
		return err
	}
	var authz resources.Authorization
	if err := json.Unmarshal(result.Body, &authz); err != nil {
		return &ProtocolError{State: c.State, URL: c.NextAuth.AuthURL, Cause: err, Transient: false}
	}

	var picked *resources.Challenge
	for i := range authz.Challenges {
		if strings.EqualFold(authz.Challenges[i].Type, c.Cfg.Challenge) {
			picked = &authz.Challenges[i]
			break
		}
	}
	if picked == nil {
		return &ProtocolError{State: c.State, URL: c.NextAuth.AuthURL, Transient: false,
			ACMEDetail: fmt.Sprintf("authorization offered no %q challenge", c.Cfg.Challenge)}
	}

	c.NextAuth.ChallURL = picked.URL
	c.NextAuth.Token = picked.Token
	c.NextAuth.Status = authz.Status
	c.NextAuth = c.NextAuth.Next
	// State stays AUTH; Phase reset to REQ for the next node (or
	// CHALLENGE once the list is drained, on the next visit).
	c.Phase = REQ
	return nil
}

func (c *Ctx) stepChallenge(goCtx context.Context) error {
	if c.NextAuth == nil {
		c.advance(CHKCHALLENGE)
		c.NextAuth = c.Auths
		return nil
	}

	result, err := c.do(goCtx, http.MethodPost, c.NextAuth.ChallURL, []byte("{}"), false)
	if err != nil {
		return err
	}
	var chall resources.Challenge
	if err := json.Unmarshal(result.Body, &chall); err != nil {
		return &ProtocolError{State: c.State, URL: c.NextAuth.ChallURL, Cause: err, Transient: false}
	}
	c.NextAuth.Status = chall.Status
	c.NextAuth = c.NextAuth.Next
	c.Phase = REQ
	return nil
}

func (c *Ctx) stepCheckChallenge(goCtx context.Context) error {
	if c.NextAuth == nil {
		c.advance(FINALIZE)
		return nil
	}

	result, err := c.do(goCtx, http.MethodPost, c.NextAuth.ChallURL, nil, false)
	if err != nil {
		return err
	}
	var chall resources.Challenge
	if err := json.Unmarshal(result.Body, &chall); err != nil {
		return &ProtocolError{State: c.State, URL: c.NextAuth.ChallURL, Cause: err, Transient: false}
	}

	switch chall.Status {
	case STATUS_PENDING, STATUS_PROCESSING:
		// Poll again: stay in CHKCHALLENGE, same node, counted against
		// the shared retry budget. There is no separate backoff schedule
		// for polling.
		return &ProtocolError{State: c.State, URL: c.NextAuth.ChallURL, Transient: true,
			ACMEDetail: "challenge still " + chall.Status}
	case STATUS_INVALID:
		detail := ""
		if chall.Error != nil {
			detail = chall.Error.Detail
		}
		return &ProtocolError{State: c.State, URL: c.NextAuth.ChallURL, Transient: false,
			ACMEType: "", ACMEDetail: detail}
	}

	c.NextAuth.Status = chall.Status
	c.NextAuth = c.NextAuth.Next
	c.Phase = REQ
	return nil
}

func (c *Ctx) stepFinalize(goCtx context.Context) error {
	csr, err := client.BuildCSR(c.Names, c.LeafKey)
	if err != nil {
		return &ProtocolError{State: c.State, Transient: false, Cause: err}
	}
	c.CSR = csr

	payload, _ := json.Marshal(struct {
		CSR string `json:"csr"`
	}{base64.RawURLEncoding.EncodeToString(csr)})

	_, err = c.do(goCtx, http.MethodPost, c.Order.Finalize, payload, false)
	if err != nil {
		return err
	}
	c.advance(CHKORDER)
	return nil
}

func (c *Ctx) stepCheckOrder(goCtx context.Context) error {
	result, err := c.do(goCtx, http.MethodPost, c.OrderURL, nil, false)
	if err != nil {
		return err
	}
	var order resources.Order
	if err := json.Unmarshal(result.Body, &order); err != nil {
		return &ProtocolError{State: c.State, URL: c.OrderURL, Cause: err, Transient: false}
	}
	order.ID = c.OrderURL
	c.Order = &order

	switch order.Status {
	case STATUS_VALID:
		c.advance(CERTIFICATE)
		return nil
	case STATUS_INVALID:
		return &ProtocolError{State: c.State, URL: c.OrderURL, Transient: false,
			ACMEDetail: "order became invalid"}
	default:
		return &ProtocolError{State: c.State, URL: c.OrderURL, Transient: true,
			ACMEDetail: "order still " + order.Status}
	}
}

func (c *Ctx) stepCertificate(goCtx context.Context, st *store.Store) error {
	result, err := c.do(goCtx, http.MethodPost, c.Order.Certificate, nil, false)
	if err != nil {
		return err
	}
	c.CertPEM = result.Body

	keyPEM, err := leafKeyPEM(c.LeafKey)
	if err != nil {
		return &ProtocolError{State: c.State, Cause: err, Transient: false}
	}

	if err := st.Swap(c.Cfg.Name, c.CertPEM, keyPEM); err != nil {
		return &ProtocolError{State: c.State, Cause: err, Transient: true}
	}

	c.advance(END)
	return nil
}
