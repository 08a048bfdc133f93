// package keys offers utility functions for working with crypto.Signers, JWS,
// JWKs and PEM serialization.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	jose "github.com/go-jose/go-jose/v4"
)

// ErrNoJWKAlgorithm is returned when a signer's key type/curve has no
// corresponding JWS algorithm. See RFC 7518 for the JOSE algorithm registry.
var ErrNoJWKAlgorithm = errors.New("couldn't choose a JWK algorithm")

// SigAlgForKey picks the JWS signature algorithm for a signer per RFC 7518:
// RSA keys always use RS256; EC keys select ES256/ES384/ES512 by curve. Any
// other key type, or an EC key on a curve outside that set, is rejected.
func SigAlgForKey(signer crypto.Signer) (jose.SignatureAlgorithm, error) {
	switch k := signer.(type) {
	case *ecdsa.PrivateKey:
		switch k.Curve {
		case elliptic.P256():
			return jose.ES256, nil
		case elliptic.P384():
			return jose.ES384, nil
		case elliptic.P521():
			return jose.ES512, nil
		}
		return "", ErrNoJWKAlgorithm
	case *rsa.PrivateKey:
		return jose.RS256, nil
	}
	return "", ErrNoJWKAlgorithm
}

func sigAlgForKey(signer crypto.Signer) jose.SignatureAlgorithm {
	alg, err := SigAlgForKey(signer)
	if err != nil {
		return "unknown"
	}
	return alg
}

func algForKey(signer crypto.Signer) string {
	switch signer.(type) {
	case *ecdsa.PrivateKey:
		return "ECDSA"
	case *rsa.PrivateKey:
		return "RSA"
	}
	return "unknown"
}

func JWKJSON(signer crypto.Signer) string {
	jwk := JWKForSigner(signer)
	jwkJSON, err := json.Marshal(&jwk)
	if err != nil {
		return ""
	}
	return string(jwkJSON)
}

func JWKThumbprintBytes(signer crypto.Signer) []byte {
	jwk := JWKForSigner(signer)
	thumbBytes, _ := jwk.Thumbprint(crypto.SHA256)
	return thumbBytes
}

func JWKThumbprint(signer crypto.Signer) string {
	thumbprintBytes := JWKThumbprintBytes(signer)
	return base64.RawURLEncoding.EncodeToString(thumbprintBytes)
}

func KeyAuth(signer crypto.Signer, token string) string {
	return fmt.Sprintf("%s.%s", token, JWKThumbprint(signer))
}

func JWKForSigner(signer crypto.Signer) jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       signer.Public(),
		Algorithm: algForKey(signer),
	}
}

func SigningKeyForSigner(signer crypto.Signer, keyID string) jose.SigningKey {
	jwk := jose.JSONWebKey{
		Key:       signer,
		Algorithm: string(sigAlgForKey(signer)),
		KeyID:     keyID,
	}
	return jose.SigningKey{
		Key:       jwk,
		Algorithm: sigAlgForKey(signer),
	}
}

func MarshalSigner(signer crypto.Signer) ([]byte, string, error) {
	var keyBytes []byte
	var keyType string
	var err error
	switch k := signer.(type) {
	case *ecdsa.PrivateKey:
		keyType = "ecdsa"
		keyBytes, err = x509.MarshalECPrivateKey(k)
	case *rsa.PrivateKey:
		keyType = "rsa"
		keyBytes = x509.MarshalPKCS1PrivateKey(k)
	default:
		err = fmt.Errorf("signer was unknown type: %T", k)
	}
	if err != nil {
		return nil, "", err
	}
	return keyBytes, keyType, nil
}

func UnmarshalSigner(keyBytes []byte, keyType string) (crypto.Signer, error) {
	var privKey crypto.Signer
	var err error
	switch keyType {
	case "ecdsa":
		privKey, err = x509.ParseECPrivateKey(keyBytes)
	case "rsa":
		privKey, err = x509.ParsePKCS1PrivateKey(keyBytes)
	default:
		err = fmt.Errorf("unknown key type %q", keyType)
	}
	if err != nil {
		return nil, err
	}
	return privKey, nil
}

func SignerToPEM(signer crypto.Signer) (string, error) {
	var keyBytes []byte
	var keyHeader string
	var err error
	switch k := signer.(type) {
	case *ecdsa.PrivateKey:
		keyBytes, err = x509.MarshalECPrivateKey(k)
		keyHeader = "EC PRIVATE KEY"
	case *rsa.PrivateKey:
		keyBytes = x509.MarshalPKCS1PrivateKey(k)
		keyHeader = "RSA PRIVATE KEY"
	default:
		err = fmt.Errorf("unknown key type: %T", k)
	}
	if err != nil {
		return "", err
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  keyHeader,
		Bytes: keyBytes,
	})
	return string(pemBytes), nil
}

func NewSigner(keyType string) (crypto.Signer, error) {
	var randKey crypto.Signer
	var err error
	switch keyType {
	case "ecdsa":
		randKey, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case "rsa":
		randKey, err = rsa.GenerateKey(rand.Reader, 2048)
	default:
		err = fmt.Errorf("unknown key type: %q", keyType)
	}
	if err != nil {
		return nil, err
	}
	return randKey, nil
}

// KeyType identifies the leaf key algorithm an acme_cfg's LeafPolicy
// requests for freshly generated renewal keys. It is distinct from the
// account key, which is always loaded from disk rather than generated.
type KeyType int

const (
	RSA KeyType = iota
	EC
)

func (t KeyType) String() string {
	if t == RSA {
		return "RSA"
	}
	return "ECDSA"
}

// LeafPolicy describes how to generate a fresh leaf private key for one
// renewal, as configured by an acme_cfg's `keytype`/`bits`/`curves`
// directives.
type LeafPolicy struct {
	Type  KeyType
	Bits  int         // RSA only
	Curve elliptic.Curve // EC only
}

// DefaultLeafPolicy matches the config package's documented defaults:
// ECDSA on the P-384 curve.
func DefaultLeafPolicy() LeafPolicy {
	return LeafPolicy{Type: EC, Curve: elliptic.P384()}
}

// NewLeafKey generates a fresh private key honoring the given policy. It is
// used by the renewal trigger to produce the account-independent key each
// renewal signs its CSR with; it is never used for the ACME account key,
// which is loaded from disk and never generated by this module.
func NewLeafKey(policy LeafPolicy) (crypto.Signer, error) {
	switch policy.Type {
	case RSA:
		bits := policy.Bits
		if bits == 0 {
			bits = 4096
		}
		return rsa.GenerateKey(rand.Reader, bits)
	case EC:
		curve := policy.Curve
		if curve == nil {
			curve = elliptic.P384()
		}
		return ecdsa.GenerateKey(curve, rand.Reader)
	default:
		return nil, fmt.Errorf("unknown leaf key type: %v", policy.Type)
	}
}

// CurveByName resolves the `curves` config directive value to a
// crypto/elliptic curve. Only the NIST curves ACME CAs commonly issue
// against are supported.
func CurveByName(name string) (elliptic.Curve, error) {
	switch name {
	case "P-256", "P256", "prime256v1":
		return elliptic.P256(), nil
	case "P-384", "P384", "secp384r1":
		return elliptic.P384(), nil
	case "P-521", "P521", "secp521r1":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported curve %q", name)
	}
}

// LoadAccountKeyPEM reads and parses the ACME account private key from
// disk. Per spec this file must already exist; this module never generates
// or writes an account key.
func LoadAccountKeyPEM(path string) (crypto.Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading account key %q: %w", path, err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("account key %q: no PEM block found", path)
	}
	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("account key %q: %w", path, err)
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("account key %q: not a signing key", path)
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("account key %q: unsupported PEM block type %q", path, block.Type)
	}
}
