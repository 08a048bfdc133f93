package resources

// Problem is a struct representing a problem document from the server, as
// returned in the body of non-2xx ACME responses.
//
// See https://tools.ietf.org/html/rfc8555#section-6.7
//
// TODO: implement RFC 8555 subproblem support
type Problem struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
	Status int    `json:"status,omitempty"`
}

// Is reports whether the Problem's Type matches the given ACME error URN
// (e.g. "urn:ietf:params:acme:error:badNonce").
func (p *Problem) Is(urn string) bool {
	return p != nil && p.Type == urn
}
