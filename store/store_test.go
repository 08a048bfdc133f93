package store

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// genCertKeyPair returns a self-signed cert/key PEM pair for name, suitable
// for tls.X509KeyPair.
func genCertKeyPair(t *testing.T, name string) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{name},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

// fakeBinding records every Entry it was rebuilt against; used to check
// Swap rebuilds every existing binding onto the new entry.
type fakeBinding struct {
	rebuildErr error
	rebuiltFor []string
}

func (b *fakeBinding) Rebuild(entry *Entry) (Binding, error) {
	if b.rebuildErr != nil {
		return nil, b.rebuildErr
	}
	next := &fakeBinding{rebuildErr: b.rebuildErr, rebuiltFor: append(append([]string{}, b.rebuiltFor...), entry.Name)}
	return next, nil
}

func TestStore_LookupMissing(t *testing.T) {
	s := New()
	assert.Nil(t, s.Lookup("nope"))
}

func TestStore_SwapInstallsAndRebuildsBindings(t *testing.T) {
	s := New()
	require.NoError(t, s.Bind("www", &fakeBinding{}))

	certPEM, keyPEM := genCertKeyPair(t, "www.example")
	require.NoError(t, s.Swap("www", certPEM, keyPEM))

	entry := s.Lookup("www")
	require.NotNil(t, entry)
	require.Len(t, entry.Bindings, 1)
	fb := entry.Bindings[0].(*fakeBinding)
	assert.Equal(t, []string{"www"}, fb.rebuiltFor)
}

func TestStore_SwapPreservesACMEConfigName(t *testing.T) {
	s := New()
	require.NoError(t, s.BindACMEConfig("www", "www-cfg", []string{"www.example"}))

	certPEM, keyPEM := genCertKeyPair(t, "www.example")
	require.NoError(t, s.Swap("www", certPEM, keyPEM))

	entry := s.Lookup("www")
	require.NotNil(t, entry)
	assert.Equal(t, "www-cfg", entry.ACMEConfigName)
}

func TestStore_SwapRejectsMismatchedKeyPair(t *testing.T) {
	s := New()
	certPEM, _ := genCertKeyPair(t, "a.example")
	_, keyPEM := genCertKeyPair(t, "b.example")

	err := s.Swap("www", certPEM, keyPEM)
	require.Error(t, err)
	var swapErr *SwapError
	require.ErrorAs(t, err, &swapErr)
}

func TestStore_SwapAbortsOnBindingRebuildFailure(t *testing.T) {
	s := New()
	require.NoError(t, s.Bind("www", &fakeBinding{rebuildErr: assert.AnError}))

	certPEM, keyPEM := genCertKeyPair(t, "www.example")
	err := s.Swap("www", certPEM, keyPEM)
	require.Error(t, err)

	// the pre-swap entry must be untouched: no certificate installed yet.
	entry := s.Lookup("www")
	require.NotNil(t, entry)
	assert.Nil(t, entry.Cert.Certificate)
}

func TestStore_SwapTryLockRejectsConcurrentSwap(t *testing.T) {
	s := New()
	s.mu.Lock() // simulate a swap already in flight
	defer s.mu.Unlock()

	certPEM, keyPEM := genCertKeyPair(t, "www.example")
	err := s.Swap("www", certPEM, keyPEM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy")
}

func TestStore_BeginRenewal(t *testing.T) {
	s := New()
	require.NoError(t, s.BindACMEConfig("www", "www-cfg", []string{"www.example"}))

	entry, cfgName, err := s.BeginRenewal("www")
	require.NoError(t, err)
	assert.Equal(t, "www-cfg", cfgName)
	assert.Equal(t, []string{"www.example"}, entry.Names)
}

func TestStore_BeginRenewalUnknownCertificate(t *testing.T) {
	s := New()
	_, _, err := s.BeginRenewal("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown certificate")
}

func TestStore_BeginRenewalUnboundCertificate(t *testing.T) {
	s := New()
	require.NoError(t, s.Bind("www", &fakeBinding{}))

	_, _, err := s.BeginRenewal("www")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not bound")
}

func TestStore_ConcurrentLookupsDoNotBlockEachOther(t *testing.T) {
	s := New()
	require.NoError(t, s.BindACMEConfig("www", "www-cfg", []string{"www.example"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Lookup("www")
		}()
	}
	wg.Wait()
}
