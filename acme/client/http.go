package client

import (
	"context"
	"encoding/json"
	"net/http"

	acmenet "github.com/haproxytech/acme-core/net"
)

// StepResult is delivered exactly once on the channel Issue returns. It is
// the "wake the suspended state" event the order state machine's REQ→RES
// transition blocks on.
type StepResult struct {
	Response *http.Response
	Body     []byte
	Err      error
}

// Nonce extracts the Replay-Nonce header from the response, or the empty
// string if there was no response (a transport failure) or no such header.
func (r *StepResult) Nonce() string {
	if r.Response == nil {
		return ""
	}
	return r.Response.Header.Get(ReplayNonceHeader)
}

// Problem unmarshals the response body as an RFC 8555 §6.7 problem document
// into dst. It is the caller's job to decide, from the status code, whether
// the body is worth trying to parse this way.
func (r *StepResult) Problem(dst interface{}) error {
	return json.Unmarshal(r.Body, dst)
}

// Issue starts one ACME HTTP step (a signed POST, or a GET/POST-as-GET) on
// its own goroutine and returns a channel that receives the single
// StepResult once the round trip completes. Receiving from this channel is
// the order state machine's entire REQ→RES suspension mechanism: the
// calling goroutine parks on the channel receive, costing nothing beyond
// the Go scheduler's usual bookkeeping, so driving a renewal never blocks
// a request-serving thread.
func Issue(ctx context.Context, n *acmenet.ACMENet, method, url string, body []byte) <-chan StepResult {
	out := make(chan StepResult, 1)
	go func() {
		defer close(out)

		if method == http.MethodPost {
			resp, err := n.PostURL(ctx, url, body)
			if err != nil {
				out <- StepResult{Err: err}
				return
			}
			out <- StepResult{Response: resp.Response, Body: resp.RespBody}
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			out <- StepResult{Err: err}
			return
		}

		resp, err := n.Do(req)
		if err != nil {
			out <- StepResult{Err: err}
			return
		}
		out <- StepResult{Response: resp.Response, Body: resp.RespBody}
	}()
	return out
}
