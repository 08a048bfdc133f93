package client

import (
	"crypto/elliptic"
	"crypto/x509"
	"testing"

	"github.com/haproxytech/acme-core/acme/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCSR_RoundTrips(t *testing.T) {
	key, err := keys.NewLeafKey(keys.LeafPolicy{Type: keys.EC, Curve: elliptic.P256()})
	require.NoError(t, err)

	names := []string{"www.example.com", "example.com", "mail.example.com"}
	der, err := BuildCSR(names, key)
	require.NoError(t, err)

	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(t, err)

	require.NoError(t, csr.CheckSignature())
	assert.Equal(t, "www.example.com", csr.Subject.CommonName)
	assert.Equal(t, names, csr.DNSNames)
	assert.Equal(t, key.Public(), csr.PublicKey)
}

func TestBuildCSR_SingleName(t *testing.T) {
	key, err := keys.NewLeafKey(keys.DefaultLeafPolicy())
	require.NoError(t, err)

	der, err := BuildCSR([]string{"solo.example.com"}, key)
	require.NoError(t, err)

	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(t, err)
	assert.Equal(t, "solo.example.com", csr.Subject.CommonName)
	assert.Equal(t, []string{"solo.example.com"}, csr.DNSNames)
}

func TestBuildCSR_RejectsEmptyNames(t *testing.T) {
	key, err := keys.NewLeafKey(keys.DefaultLeafPolicy())
	require.NoError(t, err)

	_, err = BuildCSR(nil, key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one name")
}

func TestBuildCSR_RejectsNilKey(t *testing.T) {
	_, err := BuildCSR([]string{"example.com"}, nil)
	require.Error(t, err)
}
