// Package store holds the in-memory certificate index a renewal installs
// into once issuance succeeds, and the hot-swap logic that lets it do so
// without ever blocking a TLS handshake in progress.
//
// Grounded on the certCache/mu pattern in the lightform proxy's cert
// manager: a read path (Lookup, called from every TLS handshake) that
// only waits behind a swap actually in flight, and a write path (Swap, called once per successful
// renewal) that takes a try-lock so a wedged swap degrades to "renewal
// retries later" instead of stalling every handshake behind it.
package store

import (
	"crypto/tls"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Binding is anything that holds a reference to a certname's current
// tls.Certificate and must be pointed at a new one after a successful
// swap, e.g. a listener's GetCertificate callback cache, or a
// frontend-to-certname association in the surrounding proxy. The proxy
// itself supplies concrete Bindings; this package only calls Rebuild on
// them in the order Swap discovers them.
type Binding interface {
	// Rebuild returns a new Binding wired to entry's certificate. It must
	// not mutate the receiver in place: the old Binding may still be read
	// by an in-flight handshake until the caller discards it.
	Rebuild(entry *Entry) (Binding, error)
}

// Entry is the live certificate state for one certname.
type Entry struct {
	Name     string
	Cert     tls.Certificate
	Bindings []Binding

	// ACMEConfigName names the acme_cfg stanza that renews this entry, or
	// "" if the entry was never bound to one (a manually loaded cert that
	// acme renew has nothing to do with).
	ACMEConfigName string
	// Names are the DNS identifiers a renewal requests this entry's
	// replacement certificate for.
	Names []string
}

// SwapError reports a failed hot-swap attempt: either the store-wide
// try-lock was already held by a concurrent swap, or a Binding failed to
// rebuild against the new certificate.
type SwapError struct {
	Certname string
	Reason   string
}

func (e *SwapError) Error() string {
	return fmt.Sprintf("store: swap of %q failed: %s", e.Certname, e.Reason)
}

// Store is the process-wide certificate index. One Store instance serves
// every configured certname; entries are looked up by name under a read
// lock (see Lookup) and replaced wholesale under TryLock
// (see Swap), so a renewal in progress for one certname never blocks a TLS
// handshake needing a different (or the same, pre-swap) certname.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: map[string]*Entry{}}
}

// Lookup returns the live Entry for certname, or nil if none is installed.
// Called from the TLS handshake path; it takes a read lock, so it only ever
// waits behind a swap actually in flight, never behind another lookup.
// Callers must not mutate the returned Entry.
func (s *Store) Lookup(certname string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[certname]
}

// Swap installs a freshly issued certificate (PEM chain plus its matching
// PEM private key) as the new live Entry for certname, rebuilding every
// Binding attached to the previous live entry so they point at the new
// certificate, then atomically replacing the map entry. If the store-wide
// lock is already held by a concurrent Swap, Swap returns a SwapError
// immediately rather than waiting. The renewal that called it should
// retry, not block.
func (s *Store) Swap(certname string, certPEM, keyPEM []byte) error {
	if !s.mu.TryLock() {
		return &SwapError{Certname: certname, Reason: "store busy with a concurrent swap"}
	}
	defer s.mu.Unlock()

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return &SwapError{Certname: certname, Reason: err.Error()}
	}

	prev := s.entries[certname]
	next := &Entry{Name: certname, Cert: cert}

	if prev != nil {
		next.ACMEConfigName = prev.ACMEConfigName
		next.Bindings = make([]Binding, 0, len(prev.Bindings))
		for _, b := range prev.Bindings {
			rebuilt, err := b.Rebuild(next)
			if err != nil {
				return &SwapError{Certname: certname, Reason: fmt.Sprintf("rebuilding binding: %s", err)}
			}
			next.Bindings = append(next.Bindings, rebuilt)
		}
	}

	s.entries[certname] = next
	log.WithFields(log.Fields{"cert": certname, "bindings": len(next.Bindings)}).Info("installed renewed certificate")
	return nil
}

// Bind attaches a Binding to certname's live Entry, creating an empty
// Entry first if none exists yet (e.g. registering a listener before the
// first issuance completes). Bind takes the same try-lock as Swap: it is
// only ever called from configuration loading, never from the handshake
// path, so losing a race here simply means retrying registration.
func (s *Store) Bind(certname string, b Binding) error {
	if !s.mu.TryLock() {
		return &SwapError{Certname: certname, Reason: "store busy with a concurrent swap"}
	}
	defer s.mu.Unlock()

	entry, ok := s.entries[certname]
	if !ok {
		entry = &Entry{Name: certname}
		s.entries[certname] = entry
	}
	entry.Bindings = append(entry.Bindings, b)
	return nil
}

// BindACMEConfig records which acme_cfg stanza renews certname and which
// DNS names it should request, creating an empty Entry first if none
// exists yet. Called once per stanza at config load time.
func (s *Store) BindACMEConfig(certname, cfgName string, names []string) error {
	if !s.mu.TryLock() {
		return &SwapError{Certname: certname, Reason: "store busy with a concurrent swap"}
	}
	defer s.mu.Unlock()

	entry, ok := s.entries[certname]
	if !ok {
		entry = &Entry{Name: certname}
		s.entries[certname] = entry
	}
	entry.ACMEConfigName = cfgName
	entry.Names = names
	return nil
}

// BeginRenewal performs the renewal trigger's synchronous store steps: take
// the store-wide try-lock, look up certname, require it to carry an ACME
// binding (a non-empty acme_cfg name; whether that name is known is the
// caller's check), duplicate the entry to produce the write
// target, and release the lock. It returns the duplicate and the bound
// acme_cfg name; the duplicate shares its Bindings slice with the live
// entry only for reading (the CSR/key generation steps that follow never
// touch it). Swap allocates a fresh slice when it eventually installs the
// renewed certificate.
func (s *Store) BeginRenewal(certname string) (*Entry, string, error) {
	if !s.mu.TryLock() {
		return nil, "", &SwapError{Certname: certname, Reason: "store busy with a concurrent swap"}
	}
	defer s.mu.Unlock()

	entry, ok := s.entries[certname]
	if !ok {
		return nil, "", &SwapError{Certname: certname, Reason: "unknown certificate"}
	}
	if entry.ACMEConfigName == "" {
		return nil, "", &SwapError{Certname: certname, Reason: "certificate not bound to any ACME configuration"}
	}

	dup := &Entry{
		Name:           entry.Name,
		Cert:           entry.Cert,
		Bindings:       entry.Bindings,
		ACMEConfigName: entry.ACMEConfigName,
		Names:          entry.Names,
	}
	return dup, dup.ACMEConfigName, nil
}
