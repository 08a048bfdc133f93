package client

import (
	"fmt"
	"net/http"

	acmenet "github.com/haproxytech/acme-core/net"
)

// ReplayNonceHeader is the HTTP response header ACME servers use to carry a
// fresh anti-replay nonce. Defined here (rather than in package acme) so
// this package never needs to import back up to its own caller.
const ReplayNonceHeader = "Replay-Nonce"

// FetchNewNonce performs the HEAD request to the directory's newNonce
// endpoint, per RFC 8555 §7.2. It is used once, at NEWNONCE; after that the
// driver only takes nonces from Replay-Nonce response headers, and keeps
// the last one it saw when a response carries none.
func FetchNewNonce(n *acmenet.ACMENet, newNonceURL string) (string, error) {
	resp, err := n.HeadURL(newNonceURL)
	if err != nil {
		return "", fmt.Errorf("client: fetching new nonce: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return "", fmt.Errorf("client: newNonce returned HTTP status %d", resp.StatusCode)
	}

	nonce := resp.Header.Get(ReplayNonceHeader)
	if nonce == "" {
		return "", fmt.Errorf("client: newNonce response carried no %s header", ReplayNonceHeader)
	}
	return nonce, nil
}
