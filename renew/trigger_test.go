package renew

import (
	"context"
	"crypto/elliptic"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haproxytech/acme-core/acme"
	"github.com/haproxytech/acme-core/acme/keys"
	acmenet "github.com/haproxytech/acme-core/net"
	"github.com/haproxytech/acme-core/store"
	"github.com/haproxytech/acme-core/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAccountKey(t *testing.T) string {
	t.Helper()
	signer, err := keys.NewLeafKey(keys.LeafPolicy{Type: keys.EC, Curve: elliptic.P256()})
	require.NoError(t, err)
	pemStr, err := keys.SignerToPEM(signer)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "account.key")
	require.NoError(t, os.WriteFile(path, []byte(pemStr), 0600))
	return path
}

func newTestNet(t *testing.T) *acmenet.ACMENet {
	t.Helper()
	n, err := acmenet.New(acmenet.Config{Timeout: 2 * time.Second})
	require.NoError(t, err)
	return n
}

func TestTrigger_MissingArgument(t *testing.T) {
	rt := task.NewRuntime(context.Background())
	st := store.New()
	err := Trigger(rt, st, map[string]*acme.Config{}, newTestNet(t), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing argument")
}

func TestTrigger_UnknownCertificate(t *testing.T) {
	rt := task.NewRuntime(context.Background())
	st := store.New()
	err := Trigger(rt, st, map[string]*acme.Config{}, newTestNet(t), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown certificate")
}

func TestTrigger_UnboundCertificate(t *testing.T) {
	rt := task.NewRuntime(context.Background())
	st := store.New()
	require.NoError(t, st.Bind("www", noopBinding{}))

	err := Trigger(rt, st, map[string]*acme.Config{}, newTestNet(t), "www")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not bound")
}

func TestTrigger_MissingConfig(t *testing.T) {
	rt := task.NewRuntime(context.Background())
	st := store.New()
	require.NoError(t, st.BindACMEConfig("www", "www-cfg", []string{"www.example"}))

	err := Trigger(rt, st, map[string]*acme.Config{}, newTestNet(t), "www")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer exists")
}

func TestTrigger_EmptyNames(t *testing.T) {
	rt := task.NewRuntime(context.Background())
	st := store.New()
	require.NoError(t, st.BindACMEConfig("www", "www-cfg", nil))

	cfg := &acme.Config{Name: "www-cfg"}
	err := Trigger(rt, st, map[string]*acme.Config{"www-cfg": cfg}, newTestNet(t), "www")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no DNS names on file")
}

func TestTrigger_SpawnsTaskOnSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/directory", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := &acme.Config{
		Name:           "www-cfg",
		Directory:      server.URL + "/directory",
		Contact:        []string{"mailto:admin@example.com"},
		AccountKeyPath: writeAccountKey(t),
		RetryBudget:    1,
		HTTPTimeout:    2 * time.Second,
	}
	require.NoError(t, cfg.Validate())

	rt := task.NewRuntime(context.Background())
	st := store.New()
	require.NoError(t, st.BindACMEConfig("www", "www-cfg", []string{"www.example"}))

	err := Trigger(rt, st, map[string]*acme.Config{"www-cfg": cfg}, newTestNet(t), "www")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		rt.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("spawned renewal task never returned")
	}
}

type noopBinding struct{}

func (noopBinding) Rebuild(entry *store.Entry) (store.Binding, error) {
	return noopBinding{}, nil
}
