// Package client is the stateless ACME protocol toolkit the order state
// machine in package acme drives: JWS signing, CSR construction, and the
// directory/nonce/HTTP primitives. It holds no per-renewal state of its
// own; every call takes exactly the inputs it needs and returns exactly
// the outputs the caller asked for, since nonces and signing keys are
// scoped to one renewal's Ctx, never shared across renewals.
package client

import (
	"crypto"
	"fmt"

	"github.com/haproxytech/acme-core/acme/keys"

	jose "github.com/go-jose/go-jose/v4"
)

// SignOptions controls how Sign produces a JWS for one ACME request. Either
// EmbedKey or KeyID must be set, never both: EmbedKey is used for
// newAccount (before the server has assigned a key ID), KeyID for every
// subsequent authenticated request.
type SignOptions struct {
	// EmbedKey, if true, puts Signer's public key in the JWS as a "jwk"
	// header instead of a "kid" header.
	EmbedKey bool
	// KeyID is the account URL to use as the JWS "kid" header. Must be
	// empty if EmbedKey is true; Sign rejects options that set both.
	KeyID string
	// Signer signs the JWS. It is always the ACME account key; ACME
	// authenticates requests by account, never by the CSR key.
	Signer crypto.Signer
	// Nonce is the anti-replay nonce to place in the protected header. The
	// caller (the order state machine) is the sole owner of the current
	// nonce value; this package never caches or refreshes one itself.
	Nonce string
}

func (o *SignOptions) validate() error {
	if o.EmbedKey && o.KeyID != "" {
		return fmt.Errorf("client: cannot specify both EmbedKey and KeyID")
	}
	if !o.EmbedKey && o.KeyID == "" {
		return fmt.Errorf("client: must specify EmbedKey or KeyID")
	}
	if o.Signer == nil {
		return fmt.Errorf("client: Signer must not be nil")
	}
	if o.Nonce == "" {
		return fmt.Errorf("client: Nonce must not be empty")
	}
	return nil
}

// SignResult holds a produced JWS in both parsed and serialized form.
type SignResult struct {
	URL           string
	JWS           *jose.JSONWebSignature
	SerializedJWS []byte
}

// fixedNonceSource hands back exactly the nonce Sign was called with. It
// exists only to satisfy go-jose's jose.NonceSource interface; the actual
// nonce bookkeeping (rotate on every response) lives in the order state
// machine's Ctx, one layer up.
type fixedNonceSource string

func (n fixedNonceSource) Nonce() (string, error) {
	return string(n), nil
}

// Sign produces a flattened-JSON-serialization JWS over payload, with the
// ACME-mandated "url" protected header set to url. payload may be empty
// (used for POST-as-GET requests).
func Sign(url string, payload []byte, opts SignOptions) (*SignResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var signingKey jose.SigningKey
	joseOpts := &jose.SignerOptions{
		NonceSource: fixedNonceSource(opts.Nonce),
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	}
	if opts.EmbedKey {
		signingKey = keys.SigningKeyForSigner(opts.Signer, "")
		joseOpts.EmbedJWK = true
	} else {
		signingKey = keys.SigningKeyForSigner(opts.Signer, opts.KeyID)
	}

	signer, err := jose.NewSigner(signingKey, joseOpts)
	if err != nil {
		return nil, fmt.Errorf("client: building JWS signer: %w", err)
	}

	signed, err := signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("client: signing JWS: %w", err)
	}

	serialized := []byte(signed.FullSerialize())
	parsed, err := jose.ParseSigned(string(serialized), []jose.SignatureAlgorithm{
		jose.RS256, jose.ES256, jose.ES384, jose.ES512,
	})
	if err != nil {
		return nil, fmt.Errorf("client: re-parsing serialized JWS: %w", err)
	}

	return &SignResult{
		URL:           url,
		JWS:           parsed,
		SerializedJWS: serialized,
	}, nil
}
