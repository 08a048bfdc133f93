package resources

// Identifier names one subject a certificate (or an authorization) covers.
// RFC 8555 §9.7.7 defines only the "dns" type; this module never builds or
// accepts any other value for Type.
//
// Wildcard names (e.g. "*.example.com") are valid in a newOrder request's
// identifier list but must never appear here with the "*." prefix still
// attached. An Authorization's own Identifier always names the bare
// domain, with Authorization.Wildcard set instead.
type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Authorization is the RFC 8555 §7.1.4 resource an order's identifiers are
// each proven against via one of its Challenges. A Ctx fetches one
// Authorization per AuthNode during the AUTH state and discards it once
// the matching challenge has been selected; only ChallURL/Token/Status
// survive onto the node itself.
type Authorization struct {
	// ID is never read from the server: authorizations are addressed
	// purely by URL, so this is left for callers that want to tag an
	// Authorization with the URL it was fetched from.
	ID string `json:"-"`
	// Status is one of "pending", "valid", "invalid", "deactivated",
	// "expired", "revoked" (§7.1.6).
	Status     string      `json:"status"`
	Identifier Identifier  `json:"identifier"`
	Challenges []Challenge `json:"challenges"`
	Expires    string      `json:"expires,omitempty"`
	// Wildcard is true when this authorization covers a name that was
	// submitted to newOrder with a "*." prefix.
	Wildcard bool `json:"wildcard,omitempty"`
}

func (a Authorization) String() string {
	return a.ID
}
