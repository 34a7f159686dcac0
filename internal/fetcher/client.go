package fetcher

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/out-of-energy/topshop/internal/config"
)

// maxRedirects is the number of redirects a full fetch follows.
const maxRedirects = 10

// newTransport returns the transport shared by the page and probe clients.
// When sites is non-nil, every request to a configured host carries that
// host's cookie and headers.
func newTransport(sites *config.File) http.RoundTripper {
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if sites == nil {
		return base
	}
	return &siteTransport{base: base, sites: sites}
}

// newPageClient returns the client used for full fetches.
// Timeouts are applied per request through the context.
func newPageClient(transport http.RoundTripper) *http.Client {
	// Storefronts set a session cookie on the first response and redirect
	// to a localized path; the jar keeps the redirect chain working.
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// newProbeClient returns the client used for probes.
// A redirect on a probe path is itself the answer, so it is not followed.
func newProbeClient(transport http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// siteTransport wraps an http.RoundTripper to inject per-site cookies and
// headers from the rule file. It applies to redirects as well as the
// initial request.
type siteTransport struct {
	base  http.RoundTripper
	sites *config.File
}

// RoundTrip implements http.RoundTripper.
func (t *siteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	sc := t.sites.GetSiteConfig(req.URL.Hostname())
	if sc.Cookie == "" && len(sc.Headers) == 0 {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	if sc.Cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+sc.Cookie)
		} else {
			clone.Header.Set("Cookie", sc.Cookie)
		}
	}
	for key, value := range sc.Headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
