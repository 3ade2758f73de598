// Package httpx provides the shared outbound HTTP client configuration used
// by the WhatsApp adapter, the REST-kind tool dispatcher and the RAG
// embedders (§4.8); the LLM providers build their own clients instead. It
// sets TLS >= 1.2, a 60s request
// timeout, and a capped connection pool, grounded on the teacher's
// dialer.HandshakeTimeout convention in channels/whatsapp/whatsapp.go.
package httpx

import (
	"crypto/tls"
	"net/http"
	"time"
)

const (
	defaultTimeout     = 60 * time.Second
	maxIdleConnsTotal  = 50
	maxIdleConnsPerHost = 10
)

// NewProviderClient returns an *http.Client configured per §4.8: TLS >= 1.2,
// a 60s timeout, and a 50-socket pool cap with 10 kept idle per host.
func NewProviderClient() *http.Client {
	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:        maxIdleConnsTotal,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		MaxConnsPerHost:     maxIdleConnsTotal,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{Timeout: defaultTimeout, Transport: transport}
}
