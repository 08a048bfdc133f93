package client

import (
	"encoding/json"
	"fmt"

	acmenet "github.com/haproxytech/acme-core/net"
)

// Directory mirrors the subset of the RFC 8555 §7.1.1 directory object this
// module acts on.
type Directory struct {
	NewNonce   string `json:"newNonce"`
	NewAccount string `json:"newAccount"`
	NewOrder   string `json:"newOrder"`
	RevokeCert string `json:"revokeCert,omitempty"`
	KeyChange  string `json:"keyChange,omitempty"`
	Meta       struct {
		TermsOfService string `json:"termsOfService,omitempty"`
	} `json:"meta,omitempty"`
}

// FetchDirectory performs the single synchronous GET that begins the
// RESOURCES state. It and FetchNewNonce are the only requests this module
// makes without going through the async step driver, since the order state
// machine has no nonce to sign with until after the directory is known.
func FetchDirectory(n *acmenet.ACMENet, directoryURL string) (*Directory, error) {
	resp, err := n.GetURL(directoryURL)
	if err != nil {
		return nil, fmt.Errorf("client: fetching directory: %w", err)
	}

	var dir Directory
	if err := json.Unmarshal(resp.RespBody, &dir); err != nil {
		return nil, fmt.Errorf("client: parsing directory: %w", err)
	}
	if dir.NewNonce == "" || dir.NewAccount == "" || dir.NewOrder == "" {
		return nil, fmt.Errorf("client: directory missing required endpoint URLs")
	}
	return &dir, nil
}
