package model

import "time"

// FetchMode selects how a resource is retrieved.
type FetchMode int

const (
	// FetchModeFull issues a GET, follows redirects and reads the body.
	FetchModeFull FetchMode = iota
	// FetchModeProbe issues a HEAD with a short timeout to check existence.
	FetchModeProbe
)

// String returns the string representation of the FetchMode.
func (m FetchMode) String() string {
	switch m {
	case FetchModeFull:
		return "full"
	case FetchModeProbe:
		return "probe"
	default:
		return unknownStr
	}
}

// FetchErrorKind classifies why a fetch did not produce usable content.
type FetchErrorKind string

const (
	// FetchErrorNone means the fetch succeeded.
	FetchErrorNone FetchErrorKind = "none"
	// FetchErrorTimeout means the request did not complete within its deadline.
	FetchErrorTimeout FetchErrorKind = "timeout"
	// FetchErrorConnectionRefused covers DNS and connect failures.
	FetchErrorConnectionRefused FetchErrorKind = "connection-refused"
	// FetchErrorHTTP means the server answered with a non-2xx status.
	FetchErrorHTTP FetchErrorKind = "http-error"
	// FetchErrorOther is any failure that does not fit the kinds above.
	FetchErrorOther FetchErrorKind = "other"
)

// Retryable reports whether a fetch failing with this kind may be retried.
// HTTP status errors are answers from the server and are never retried.
func (k FetchErrorKind) Retryable() bool {
	return k == FetchErrorTimeout || k == FetchErrorConnectionRefused
}

// FetchResult is the outcome of one fetch, successful or not.
// It is produced once by the fetcher and never modified afterwards.
type FetchResult struct {
	// URL is the URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after following redirects.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP status. Only meaningful when HasStatus is true.
	StatusCode int `json:"status_code,omitempty"`

	// HasStatus is false when no HTTP response was received at all.
	HasStatus bool `json:"has_status"`

	// ContentType is the response Content-Type header.
	ContentType string `json:"content_type,omitempty"`

	// Body is the UTF-8 decoded response body, possibly truncated.
	Body []byte `json:"-"`

	// ErrorKind classifies the failure, FetchErrorNone on success.
	ErrorKind FetchErrorKind `json:"error_kind"`

	// Err is the underlying error, nil on success.
	Err error `json:"-"`

	// Attempts is the number of requests issued, including retries.
	Attempts int `json:"attempts"`

	// Duration is the wall time spent, including retries and rate-limit waits.
	Duration time.Duration `json:"duration"`
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool {
	return r.ErrorKind == FetchErrorNone && r.Err == nil
}

// ErrorString returns the error message or an empty string.
func (r FetchResult) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
