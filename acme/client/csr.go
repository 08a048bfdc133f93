package client

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
)

// BuildCSR constructs a PKCS#10 certificate signing request for the given
// names, signed with key. The first name becomes the CommonName; the full
// name list becomes the Subject Alternative Name extension, per RFC 8555
// §7.4's requirement that the CSR's names be a subset of the order's
// identifiers. key is the freshly generated per-renewal leaf key, never the
// account key. The returned bytes are the DER encoding of the CSR.
func BuildCSR(names []string, key crypto.Signer) ([]byte, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("client: BuildCSR requires at least one name")
	}
	if key == nil {
		return nil, fmt.Errorf("client: BuildCSR requires a non-nil key")
	}

	template := &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: names[0]},
		DNSNames: names,
	}

	return x509.CreateCertificateRequest(rand.Reader, template, key)
}
