package classifier

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/out-of-energy/topshop/internal/config"
	"github.com/out-of-energy/topshop/internal/fetcher"
	"github.com/out-of-energy/topshop/internal/model"
)

const epsilon = 1e-9

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher() *fetcher.Fetcher {
	return fetcher.New(
		fetcher.WithDelay(0),
		fetcher.WithBackoff(time.Millisecond),
		fetcher.WithTimeout(5*time.Second),
		fetcher.WithProbeTimeout(time.Second),
		fetcher.WithLogger(quietLogger()),
	)
}

func newTestClassifier(t *testing.T, f *fetcher.Fetcher, opts ...Option) *Classifier {
	t.Helper()
	c, err := New(f, config.DefaultFile(), append([]Option{WithLogger(quietLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// storefront serves page on "/" and answers every other path with status.
func storefront(t *testing.T, page string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClassifyPlatform(t *testing.T) {
	t.Parallel()

	t.Run("footer phrase alone is not enough", func(t *testing.T) {
		t.Parallel()

		server := storefront(t, `<html><body><footer>Powered by Shopify</footer></body></html>`, http.StatusNotFound)
		res := newTestClassifier(t, newTestFetcher()).Classify(context.Background(), server.URL, model.TaskKindPlatform)

		if res.Error != "" {
			t.Fatalf("unexpected error: %s", res.Error)
		}
		if math.Abs(res.Confidence-0.2) > epsilon {
			t.Errorf("expected confidence 0.2, got %v", res.Confidence)
		}
		if res.Verdict {
			t.Error("expected negative verdict")
		}
		if len(res.Indicators) != 5 {
			t.Errorf("expected 5 indicators, got %d", len(res.Indicators))
		}
		if ir, ok := res.Indicator("footer-text"); !ok || ir.Value != 1 {
			t.Errorf("expected footer-text to fire, got %+v", ir)
		}
		if res.State != model.TaskStateScored {
			t.Errorf("expected scored state, got %s", res.State)
		}
	})

	t.Run("storefront with platform markers is positive", func(t *testing.T) {
		t.Parallel()

		page := `<html><head>
<script src="//cdn.shopify.com/s/files/1/theme.js"></script>
<meta name="shopify-checkout-api-token" content="x">
</head><body><a href="/collections/all">Shop</a><a href="/cart">Cart</a></body></html>`
		server := storefront(t, page, http.StatusUnauthorized)
		res := newTestClassifier(t, newTestFetcher()).Classify(context.Background(), server.URL, model.TaskKindPlatform)

		// script 1, meta 1, links 2/3, footer 0, probe 1
		want := (3 + 2.0/3) / 5
		if math.Abs(res.Confidence-want) > epsilon {
			t.Errorf("expected %v, got %v (%+v)", want, res.Confidence, res.Indicators)
		}
		if !res.Verdict {
			t.Error("expected positive verdict")
		}
		if res.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", res.StatusCode)
		}
		if res.ErrorKind != model.FetchErrorNone || res.Failed() {
			t.Errorf("expected error kind none on success, got %q", res.ErrorKind)
		}
	})
}

func TestClassifyFetchFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	c := newTestClassifier(t, newTestFetcher())
	for _, kind := range model.AllTaskKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			res := c.Classify(context.Background(), server.URL, kind)
			if res.Confidence != 0 || res.Verdict {
				t.Errorf("expected 0/false, got %v/%v", res.Confidence, res.Verdict)
			}
			if len(res.Indicators) != 0 {
				t.Errorf("expected no indicators, got %d", len(res.Indicators))
			}
			if res.Error == "" || !res.Failed() {
				t.Error("expected error to be recorded")
			}
			if res.ErrorKind != model.FetchErrorHTTP {
				t.Errorf("expected http-error, got %s", res.ErrorKind)
			}
			if res.StatusCode != http.StatusInternalServerError {
				t.Errorf("expected status 500, got %d", res.StatusCode)
			}
		})
	}
}

func TestClassifyInvalidTarget(t *testing.T) {
	t.Parallel()

	res := newTestClassifier(t, newTestFetcher()).Classify(context.Background(), "ftp://files.example.com", model.TaskKindCategory)
	if !res.Failed() || res.Verdict || res.Confidence != 0 {
		t.Errorf("expected failed result, got %+v", res)
	}
	if res.Target != "ftp://files.example.com" {
		t.Errorf("expected raw target kept, got %q", res.Target)
	}
	if res.Threshold != 0.6 {
		t.Errorf("expected category threshold, got %v", res.Threshold)
	}
}

func TestClassifyDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := newTestClassifier(t, newTestFetcher(), WithDeadline(100*time.Millisecond))
	start := time.Now()
	res := c.Classify(context.Background(), server.URL, model.TaskKindPlatform)

	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("deadline not applied, took %v", elapsed)
	}
	if res.ErrorKind != model.FetchErrorTimeout {
		t.Errorf("expected timeout, got %s (%s)", res.ErrorKind, res.Error)
	}
	if res.Verdict || res.Confidence != 0 {
		t.Error("expected zero result")
	}
}

func TestClassifyDeadlineWhileScoring(t *testing.T) {
	t.Parallel()

	page := `<html><head>
<script src="//cdn.shopify.com/s/files/1/theme.js"></script>
<meta name="shopify-checkout-api-token" content="x">
</head><body>
<a href="/products/a">a</a><a href="/collections/all">all</a><a href="/cart">cart</a>
<footer>Powered by Shopify</footer>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(page))
			return
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	f := fetcher.New(
		fetcher.WithDelay(0),
		fetcher.WithTimeout(5*time.Second),
		fetcher.WithProbeTimeout(5*time.Second),
		fetcher.WithLogger(quietLogger()),
	)
	c := newTestClassifier(t, f, WithDeadline(300*time.Millisecond))

	start := time.Now()
	res := c.Classify(context.Background(), server.URL, model.TaskKindPlatform)

	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("deadline not applied, took %v", elapsed)
	}
	if res.ErrorKind != model.FetchErrorTimeout || !res.Failed() {
		t.Errorf("expected timeout failure, got %q (%s)", res.ErrorKind, res.Error)
	}
	if res.Verdict || res.Confidence != 0 {
		t.Errorf("expected zero result, got %v/%v", res.Confidence, res.Verdict)
	}
	if len(res.Indicators) != 0 {
		t.Errorf("expected no indicators, got %d", len(res.Indicators))
	}
	if res.State != model.TaskStateScored {
		t.Errorf("expected scored state, got %s", res.State)
	}
}

func TestClassifyContentScenarios(t *testing.T) {
	t.Parallel()

	const fashion = `<html><body>
<p>skirt blouse jeans cardigan scarf lipstick $25</p>
<a href="/products/a">a</a><a href="/products/b">b</a>
</body></html>`
	const mixed = `<html><body>
<p>skirt blouse jeans cardigan scarf lipstick $25 kids books garden</p>
<a href="/products/a">a</a><a href="/products/b">b</a>
</body></html>`

	tests := []struct {
		name    string
		body    string
		want    float64
		verdict bool
	}{
		{name: "six keywords two links one price", body: fashion, want: 0.62, verdict: true},
		{name: "plus three exclusions", body: mixed, want: 0.22, verdict: false},
		{name: "empty body", body: "", want: 0, verdict: false},
	}

	c := newTestClassifier(t, newTestFetcher())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := c.ClassifyContent(context.Background(), "boutique.example.com", model.TaskKindCategory, []byte(tt.body))
			if math.Abs(res.Confidence-tt.want) > epsilon {
				t.Errorf("expected %v, got %v (%+v)", tt.want, res.Confidence, res.Indicators)
			}
			if res.Verdict != tt.verdict {
				t.Errorf("expected verdict %v, got %v", tt.verdict, res.Verdict)
			}
			if res.Error != "" {
				t.Errorf("content scoring must not fail: %s", res.Error)
			}
		})
	}
}

// staticProber answers every probe with 404 without touching the network.
type staticProber struct{}

func (staticProber) Fetch(_ context.Context, rawURL string, _ model.FetchMode) model.FetchResult {
	return model.FetchResult{URL: rawURL, HasStatus: true, StatusCode: http.StatusNotFound, ErrorKind: model.FetchErrorNone}
}

func TestClassifyContentIdempotent(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c, err := New(staticProber{}, config.DefaultFile(), WithLogger(quietLogger()), WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatal(err)
	}

	body := []byte(`<html><head><title>Dresses</title><script src="/cdn/shopify.js"></script></head>
<body><a href="/products/x">x</a><p>From $40</p><footer>Powered by Shopify</footer></body></html>`)

	for _, kind := range model.AllTaskKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			first := c.ClassifyContent(context.Background(), "shop.example.com", kind, body)
			second := c.ClassifyContent(context.Background(), "shop.example.com", kind, body)
			if !reflect.DeepEqual(first, second) {
				t.Errorf("results differ:\n%+v\n%+v", first, second)
			}
		})
	}
}
