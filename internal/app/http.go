package app

import (
	"net"
	"net/http"
	"time"
)

// DefaultHTTPTimeout caps one outbound call on the shared client.
const DefaultHTTPTimeout = 2 * time.Minute

// newSharedHTTPClient returns the one HTTP client used for search, page
// fetches and the LLM. It is tuned for parallel fan-out without client-side
// throttling. A positive timeout bounds any single call; zero leaves calls
// bounded only by their request context.
func newSharedHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,   // no global limit
		MaxIdleConnsPerHost:   128, // search + LLM hosts see bursts
		MaxConnsPerHost:       0,   // unlimited
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if timeout < 0 {
		timeout = 0
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
