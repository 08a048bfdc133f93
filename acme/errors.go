package acme

import (
	"fmt"

	"github.com/haproxytech/acme-core/acme/resources"
)

// ConfigError is returned by Config.Validate (and, one level up, by the
// config package's Build) when an `acme <name> { ... }` stanza is
// malformed. ConfigErrors are fatal at load time: the stanza is rejected
// before any renewal using it can ever start.
type ConfigError struct {
	Stanza string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("acme config %q: %s", e.Stanza, e.Reason)
}

// ProtocolError reports a failed ACME HTTP step: either a transport-level
// failure (DNS, connect, timeout) or a non-2xx response, optionally
// carrying the server's RFC 8555 §6.7 problem document. Every
// ProtocolError is counted against a Ctx's retry budget the same way;
// Transient only classifies the failure, it does not decide whether the
// step gets retried.
type ProtocolError struct {
	// State is the order state active when the error occurred.
	State State
	// StatusCode is the HTTP status code, or zero for a transport failure
	// that never reached the server.
	StatusCode int
	// URL is the request URL that failed.
	URL string
	// ACMEType is the problem document's "type" field, e.g.
	// "urn:ietf:params:acme:error:badNonce". Empty if the server returned
	// no problem document.
	ACMEType string
	// ACMEDetail is the problem document's "detail" field.
	ACMEDetail string
	// Transient classifies the kind of failure (bad nonces and 5xx
	// responses are transient; most 4xx client errors are not). Both
	// kinds consume the same retry budget; Transient never decides
	// whether a step gets to retry, only how the failure is described.
	Transient bool
	// Cause is the underlying transport error, if any (nil for a plain
	// non-2xx response with a problem document).
	Cause error
}

func (e *ProtocolError) Error() string {
	if e.ACMEType != "" {
		return fmt.Sprintf("invalid HTTP status code %d when getting %s: '%s' (%s)",
			e.StatusCode, e.URL, e.ACMEDetail, e.ACMEType)
	}
	if e.Cause != nil {
		return fmt.Sprintf("requesting %s: %s", e.URL, e.Cause)
	}
	return fmt.Sprintf("invalid HTTP status code %d when getting %s", e.StatusCode, e.URL)
}

func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// IsBadNonce reports whether the server rejected the request for using a
// stale or already-consumed nonce.
func (e *ProtocolError) IsBadNonce() bool {
	return e.ACMEType == ERR_BAD_NONCE
}

// problemErrorFromResponse builds a ProtocolError from an HTTP response
// whose body parsed as a Problem document, classifying transience by
// status code and ACME error type.
func problemErrorFromResponse(state State, url string, statusCode int, problem *resources.Problem) *ProtocolError {
	pe := &ProtocolError{
		State:      state,
		StatusCode: statusCode,
		URL:        url,
	}
	if problem != nil {
		pe.ACMEType = problem.Type
		pe.ACMEDetail = problem.Detail
	}
	pe.Transient = pe.ACMEType == ERR_BAD_NONCE || statusCode >= 500
	return pe
}
