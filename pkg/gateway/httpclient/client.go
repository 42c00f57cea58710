package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// New creates an HTTP client tuned for outbound calls to the prediction
// service. A zero timeout leaves the bound to the network stack.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Credentials configures the OAuth2 client-credentials grant used when the
// prediction service sits behind an identity provider.
type Credentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

func (c Credentials) Enabled() bool {
	return c.ClientID != "" && c.TokenURL != ""
}

// WithCredentials wraps base so every request carries a bearer token from the
// client-credentials flow. Tokens are cached and refreshed on expiry. The
// base transport and timeout are kept for both token and API calls.
func WithCredentials(ctx context.Context, base *http.Client, creds Credentials) *http.Client {
	if !creds.Enabled() {
		return base
	}

	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
		Scopes:       creds.Scopes,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := cfg.Client(ctx)
	client.Timeout = base.Timeout
	return client
}
