package image

import (
	"net/http"
	"time"
)

const defaultSearchTimeout = 30 * time.Second

// clientConfig is shared by the provider clients
type clientConfig struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a provider client
type ClientOption func(*clientConfig)

// WithBaseURL points a client at another API host, e.g. a test server
func WithBaseURL(u string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

func newClientConfig(baseURL string, opts []ClientOption) clientConfig {
	cfg := clientConfig{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultSearchTimeout},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
