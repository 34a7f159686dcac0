package fetcher

import (
	"context"
	"errors"
	"net"
	"net/url"
	"syscall"

	"github.com/out-of-energy/topshop/internal/model"
)

// Fetch errors. FetchResult.Err wraps one of these so callers can use
// errors.Is without inspecting ErrorKind.
var (
	// ErrTimeout is returned when a request exceeds its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrNetwork is returned when the host could not be resolved or reached.
	ErrNetwork = errors.New("network error")

	// ErrHTTPStatus is returned when a full fetch receives a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrInvalidURL is returned when the URL cannot be turned into a request.
	ErrInvalidURL = errors.New("invalid URL")
)

// classify maps a transport error to a FetchErrorKind and a sentinel.
// parent is the caller's context. A caller deadline is a timeout like a
// per-attempt one; a cancelled caller is reported as other.
func classify(parent context.Context, err error) (model.FetchErrorKind, error) {
	if perr := parent.Err(); perr != nil {
		if errors.Is(perr, context.DeadlineExceeded) {
			return model.FetchErrorTimeout, errors.Join(ErrTimeout, err)
		}
		return model.FetchErrorOther, err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return model.FetchErrorTimeout, errors.Join(ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.FetchErrorTimeout, errors.Join(ErrTimeout, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return model.FetchErrorConnectionRefused, errors.Join(ErrNetwork, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return model.FetchErrorConnectionRefused, errors.Join(ErrNetwork, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return model.FetchErrorConnectionRefused, errors.Join(ErrNetwork, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return model.FetchErrorOther, errors.Join(ErrInvalidURL, err)
	}
	return model.FetchErrorOther, err
}
