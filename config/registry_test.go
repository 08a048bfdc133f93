package config

import (
	"crypto/elliptic"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haproxytech/acme-core/acme/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stanza(name string, directives ...Directive) RawSection {
	return RawSection{Name: name, Directives: directives}
}

func d(name string, args ...string) Directive {
	return Directive{Name: name, Args: args}
}

// writeAccountKey materializes a usable PEM account key at path, since
// Config.Validate refuses to complete without one on disk.
func writeAccountKey(t *testing.T, path string) {
	t.Helper()
	signer, err := keys.NewLeafKey(keys.LeafPolicy{Type: keys.EC, Curve: elliptic.P256()})
	require.NoError(t, err)
	pemStr, err := keys.SignerToPEM(signer)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(pemStr), 0600))
}

func TestBuild_RejectsWithoutOptIn(t *testing.T) {
	sections := []RawSection{stanza("www", d("uri", "https://acme.example/directory"))}
	_, err := Build(sections, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "experimental")
}

func TestBuild_AccountKeyPathDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	writeAccountKey(t, "www.account.key")

	sections := []RawSection{stanza("www",
		d("uri", "https://acme.example/directory"),
		d("contact", "mailto:admin@example.com"),
	)}

	reg, err := Build(sections, true)
	require.NoError(t, err)
	require.Contains(t, reg.Configs, "www")
	assert.Equal(t, "www.account.key", reg.Configs["www"].AccountKeyPath)
}

func TestBuild_ExplicitAccountDirective(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "www.key")
	writeAccountKey(t, keyPath)

	sections := []RawSection{stanza("www",
		d("uri", "https://acme.example/directory"),
		d("contact", "mailto:admin@example.com"),
		d("account", keyPath),
	)}

	reg, err := Build(sections, true)
	require.NoError(t, err)
	assert.Equal(t, keyPath, reg.Configs["www"].AccountKeyPath)
}

func TestBuild_ChallengeNormalization(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "www.key")
	writeAccountKey(t, keyPath)

	sections := []RawSection{stanza("www",
		d("uri", "https://acme.example/directory"),
		d("contact", "mailto:admin@example.com"),
		d("account", keyPath),
		d("challenge", "DNS-01"),
	)}

	reg, err := Build(sections, true)
	require.NoError(t, err)
	assert.Equal(t, "dns-01", reg.Configs["www"].Challenge)
}

func TestBuild_UnknownChallengeRejected(t *testing.T) {
	sections := []RawSection{stanza("www",
		d("uri", "https://acme.example/directory"),
		d("contact", "mailto:admin@example.com"),
		d("challenge", "tls-alpn-01"),
	)}

	_, err := Build(sections, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown challenge type")
}

func TestBuild_KeyTypeAndBits(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "www.key")
	writeAccountKey(t, keyPath)

	sections := []RawSection{stanza("www",
		d("uri", "https://acme.example/directory"),
		d("contact", "mailto:admin@example.com"),
		d("account", keyPath),
		d("keytype", "RSA"),
		d("bits", "3072"),
	)}

	reg, err := Build(sections, true)
	require.NoError(t, err)
	cfg := reg.Configs["www"]
	assert.Equal(t, keys.RSA, cfg.LeafPolicy.Type)
	assert.Equal(t, 3072, cfg.LeafPolicy.Bits)
}

func TestBuild_TimeoutAndRetry(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "www.key")
	writeAccountKey(t, keyPath)

	sections := []RawSection{stanza("www",
		d("uri", "https://acme.example/directory"),
		d("contact", "mailto:admin@example.com"),
		d("account", keyPath),
		d("timeout", "10s"),
		d("retry", "5"),
	)}

	reg, err := Build(sections, true)
	require.NoError(t, err)
	cfg := reg.Configs["www"]
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5, cfg.RetryBudget)
}

func TestBuild_DuplicateStanzaRejected(t *testing.T) {
	t.Chdir(t.TempDir())
	writeAccountKey(t, "www.account.key")

	sections := []RawSection{
		stanza("www", d("uri", "https://acme.example/directory"), d("contact", "mailto:a@example.com")),
		stanza("www", d("uri", "https://acme.example/directory"), d("contact", "mailto:a@example.com")),
	}
	_, err := Build(sections, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate stanza")
}

func TestBuild_MissingRequiredFieldFailsValidate(t *testing.T) {
	sections := []RawSection{stanza("www", d("contact", "mailto:a@example.com"))}
	_, err := Build(sections, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory")
}

func TestBuild_UnknownDirectiveRejected(t *testing.T) {
	sections := []RawSection{stanza("www", d("bogus", "value"))}
	_, err := Build(sections, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown directive")
}
