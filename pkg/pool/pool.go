// Package pool implements the shared, thread-safe HTTP client pool keyed by
// domain (scheme://host:port), so every Request action hitting the same
// upstream reuses one connection-pooling client instead of building a fresh
// one per request.
package pool

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Pool is safe for concurrent use by many goroutines. Lookups take the lock
// only long enough to find-or-create the client; the client itself is used
// outside the lock.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*http.Client

	noCheckCertificate bool
	timeout            time.Duration
}

// New builds a Pool. timeout is the default per-request timeout applied to
// every client it creates; noCheckCertificate disables TLS verification for
// every client, matching --no-check-certificate.
func New(timeout time.Duration, noCheckCertificate bool) *Pool {
	return &Pool{
		clients:            map[string]*http.Client{},
		noCheckCertificate: noCheckCertificate,
		timeout:            timeout,
	}
}

// DomainKey extracts the scheme://host:port key clients are bucketed by,
// defaulting the port to 0 when the URL doesn't specify one (so
// http://example.com and http://example.com:80 land in different buckets).
func DomainKey(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "0"
	}
	return fmt.Sprintf("%s://%s:%s", u.Scheme, u.Hostname(), port)
}

// Get returns the client for key, creating one if this is the first time
// key has been seen.
func (p *Pool) Get(key string) *http.Client {
	p.mu.Lock()
	client, ok := p.clients[key]
	if !ok {
		client = p.newClient()
		p.clients[key] = client
	}
	p.mu.Unlock()
	return client
}

func (p *Pool) newClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if p.noCheckCertificate {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   p.timeout,
	}
}

// Size reports how many distinct domains this pool currently holds a client
// for. Mostly useful in tests.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}
