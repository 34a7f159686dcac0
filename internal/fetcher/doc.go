// Package fetcher retrieves storefront pages and probes well-known endpoints.
//
// A Fetcher issues two kinds of requests. A full fetch is a GET that
// follows up to ten redirects, reads at most the configured body size and
// decodes the body to UTF-8 using the declared or sniffed charset. A probe
// is a HEAD with a short timeout that never follows redirects; only its
// status code matters.
//
// Design decision: failures are data, not errors. Fetch always returns a
// model.FetchResult and classifies what went wrong in its ErrorKind, so
// that indicator extractors and the classifier can turn a failed fetch
// into a zero-confidence result instead of aborting a batch.
//
// Full fetches to the same host are spaced by a per-host token bucket
// (golang.org/x/time/rate) and retried with exponential backoff when the
// failure is a network error or a timeout. An HTTP status is an answer
// and is never retried. Probes skip both mechanisms.
package fetcher
