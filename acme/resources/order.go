package resources

// Order is the RFC 8555 §7.1.3 resource that ties a set of identifiers to
// the authorizations and eventual certificate the Ctx drives through
// NEWORDER, AUTH/CHALLENGE/CHKCHALLENGE, FINALIZE, CHKORDER and
// CERTIFICATE in turn.
type Order struct {
	// ID is the order's own URL. The server's newOrder response never
	// carries it in the JSON body; it comes from the response's Location
	// header instead (see stepNewOrder), so it is never marshaled or
	// unmarshaled as JSON.
	ID          string       `json:"-"`
	Status      string       `json:"status"`
	Identifiers []Identifier `json:"identifiers"`
	// Authorizations holds one URL per identifier; AUTH walks these in
	// order via the AuthNode chain BuildAuthChain constructs.
	Authorizations []string `json:"authorizations"`
	// Finalize is the URL FINALIZE POSTs the CSR to once every
	// authorization is valid.
	Finalize string `json:"finalize"`
	// Certificate is set once Status is "valid"; CERTIFICATE POSTs here
	// to download the issued chain.
	Certificate string `json:"certificate,omitempty"`
}

func (o Order) String() string {
	return o.ID
}
