// Package net provides the HTTP transport the ACME client speaks to the
// CA over. TLS trust for that connection is this package's concern; the
// reverse proxy's own listener-facing TLS stack is not (see SPEC_FULL.md
// §1, "deliberately out of scope").
package net

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httputil"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	version       = "0.0.1"
	userAgentBase = "acme-core"
	locale        = "en-us"
)

// Config controls the trust roots used for HTTPS connections to the ACME
// server. An empty CABundlePath uses the host's system trust store, which
// is the right default for production CAs (Let's Encrypt, ZeroSSL, ...);
// CABundlePath is only set in tests pointed at a local CA like Pebble.
type Config struct {
	CABundlePath string
	Timeout      time.Duration
}

func (c *Config) normalize() error {
	c.CABundlePath = strings.TrimSpace(c.CABundlePath)
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

type ACMENet struct {
	httpClient *http.Client
}

func New(conf Config) (*ACMENet, error) {
	if err := conf.normalize(); err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{}
	if conf.CABundlePath != "" {
		pemBundle, err := ioutil.ReadFile(conf.CABundlePath)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle %q: %w", conf.CABundlePath, err)
		}
		caBundle := x509.NewCertPool()
		if !caBundle.AppendCertsFromPEM(pemBundle) {
			return nil, fmt.Errorf("CA bundle %q contained no usable certificates", conf.CABundlePath)
		}
		tlsConfig.RootCAs = caBundle
	}

	return &ACMENet{
		httpClient: &http.Client{
			Timeout: conf.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		},
	}, nil
}

type NetResponse struct {
	Response *http.Response
	RespBody []byte
	RespDump []byte
	ReqDump  []byte
}

func (c *ACMENet) Do(req *http.Request) (*NetResponse, error) {
	return c.httpRequest(req)
}

func (c *ACMENet) httpRequest(req *http.Request) (*NetResponse, error) {
	ua := fmt.Sprintf("%s %s (%s; %s)",
		userAgentBase, version, runtime.GOOS, runtime.GOARCH)
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", locale)

	reqDump, err := httputil.DumpRequest(req, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respDump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return nil, err
	}

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &NetResponse{
		Response: resp,
		RespBody: respBody,
		RespDump: respDump,
		ReqDump:  reqDump,
	}, nil
}

func (c *ACMENet) HeadURL(url string) (*http.Response, error) {
	log.WithField("url", url).Debug("sending HEAD request")
	return c.httpClient.Head(url)
}

// PostRequest builds a POST request to url carrying body, bound to ctx so
// the caller can cancel it mid-flight. This is the request every signed
// ACME step (client.Issue) goes through.
func (c *ACMENet) PostRequest(ctx context.Context, url string, body []byte) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
}

// PostURL builds and sends a POST request to url carrying body, setting
// the JOSE content type every signed ACME request requires.
func (c *ACMENet) PostURL(ctx context.Context, url string, body []byte) (*NetResponse, error) {
	log.WithField("url", url).Debug("sending POST request")
	req, err := c.PostRequest(ctx, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/jose+json")
	return c.Do(req)
}

// Convenience function to construct a GET request to the given URL. Returns an
// HTTP request or a non-nil error.
func (c *ACMENet) GetRequest(url string) (*http.Request, error) {
	return http.NewRequest("GET", url, nil)
}

// Convenience function to GET the given URL. This is a wrapper combining
// GetRequest and Do.
func (c *ACMENet) GetURL(url string) (*NetResponse, error) {
	log.WithField("url", url).Debug("sending GET request")
	req, err := c.GetRequest(url)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}
