package resources

// Challenge is the RFC 8555 §7.1.5 resource a Ctx selects one of (per
// Config.Challenge) during AUTH, triggers during CHALLENGE, and polls
// during CHKCHALLENGE until it leaves "pending"/"processing".
type Challenge struct {
	// Type is "http-01" or "dns-01" (§8); comparison against
	// Config.Challenge is case-insensitive, matching stepAuth's selection
	// scan.
	Type string `json:"type"`
	// URL is where CHALLENGE/CHKCHALLENGE POST to trigger and poll this
	// challenge.
	//
	// TODO: rename to ID for consistency with Authorization and Order.
	URL string `json:"url"`
	// Token combines with the account key thumbprint to form the key
	// authorization a challenge response publishes.
	Token string `json:"token"`
	// Status is one of "pending", "processing", "valid", "invalid".
	Status string `json:"status"`
	// Error carries the problem document explaining why Status is
	// "invalid", if the server supplied one.
	Error *Problem `json:"error,omitempty"`
}

func (c Challenge) String() string {
	return c.URL
}
