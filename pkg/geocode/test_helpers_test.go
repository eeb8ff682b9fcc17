package geocode

import (
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// newTestLimiter creates a rate limiter that effectively does not limit for tests.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// nominatimRedirect sends requests for the public Nominatim host to a test
// server and remembers which hosts were asked for.
type nominatimRedirect struct {
	target *url.URL

	mu    sync.Mutex
	hosts []string
}

func newNominatimRedirect(t *testing.T, srvURL string) *nominatimRedirect {
	t.Helper()
	target, err := url.Parse(srvURL)
	require.NoError(t, err)
	return &nominatimRedirect{target: target}
}

func (n *nominatimRedirect) client() *http.Client {
	return &http.Client{Transport: n}
}

func (n *nominatimRedirect) requestedHosts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.hosts...)
}

func (n *nominatimRedirect) RoundTrip(req *http.Request) (*http.Response, error) {
	n.mu.Lock()
	n.hosts = append(n.hosts, req.URL.Host)
	n.mu.Unlock()

	out := req.Clone(req.Context())
	out.URL.Scheme = n.target.Scheme
	out.URL.Host = n.target.Host
	out.Host = n.target.Host
	return http.DefaultTransport.RoundTrip(out)
}
