// Package acme drives the ACMEv2 (RFC 8555) order state machine that renews
// a single certificate on behalf of a running reverse proxy.
package acme

const (
	// See https://ietf-wg-acme.github.io/acme/draft-ietf-acme-acme.html#rfc.section.7.1.1
	// The ACME directory key for the newNonce endpoint
	NEW_NONCE_ENDPOINT = "newNonce"
	// The ACME directory key for the newAccount endpoint.
	NEW_ACCOUNT_ENDPOINT = "newAccount"
	// The ACME directory key for the newOrder endpoint.
	NEW_ORDER_ENDPOINT = "newOrder"
	// The HTTP response header used by ACME to communicate a fresh nonce. See
	// https://ietf-wg-acme.github.io/acme/draft-ietf-acme-acme.html#rfc.section.6.5.1
	REPLAY_NONCE_HEADER = "Replay-Nonce"
	// The HTTP response header the server returns with the URL of a newly
	// created resource (Account or Order).
	LOCATION_HEADER = "Location"
	// The content-type required on every signed ACME POST body.
	JOSE_CONTENT_TYPE = "application/jose+json"

	// The two challenge types this module knows how to pick between.
	// Comparison against a server-offered challenge's Type is
	// case-insensitive (see stepAuth).
	CHALLENGE_HTTP01 = "http-01"
	CHALLENGE_DNS01  = "dns-01"

	// ACME_ERROR_PREFIX is the prefix every RFC 8555 problem document "type"
	// field carries. See https://tools.ietf.org/html/rfc8555#section-6.7.
	ACME_ERROR_PREFIX = "urn:ietf:params:acme:error:"
	// ERR_BAD_NONCE is the problem type returned when a JWS nonce was stale
	// or already consumed. The driver retries the failed step using the
	// fresh nonce carried on the error response itself.
	ERR_BAD_NONCE = ACME_ERROR_PREFIX + "badNonce"
	// ERR_ACCOUNT_DOES_NOT_EXIST is the problem type returned for a
	// newAccount POST sent with onlyReturnExisting when no account exists
	// for the given key.
	ERR_ACCOUNT_DOES_NOT_EXIST = ACME_ERROR_PREFIX + "accountDoesNotExist"

	// RFC 8555 §7.1.6 status strings this driver distinguishes between.
	STATUS_VALID      = "valid"
	STATUS_READY      = "ready"
	STATUS_PENDING    = "pending"
	STATUS_PROCESSING = "processing"
	STATUS_INVALID    = "invalid"

	// DEFAULT_RETRY_BUDGET is ACME_RETRY from the data model: the number of
	// step failures (including failed polling attempts) a single renewal
	// tolerates before it abandons and surfaces the last error.
	DEFAULT_RETRY_BUDGET = 3
)
