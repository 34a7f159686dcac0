package model

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Target errors.
var (
	// ErrEmptyTarget is returned when the target string is empty.
	ErrEmptyTarget = errors.New("target cannot be empty")
	// ErrInvalidTarget is returned when the target is not a usable host or URL.
	ErrInvalidTarget = errors.New("invalid target: expected a domain or http(s) URL")
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// Target is an immutable value object representing a domain to classify.
// The raw string is kept for display; URL always carries a scheme and Key is
// the lowercase bare host used for comparison and deduplication.
type Target struct {
	raw  string
	url  string
	host string
}

// NewTarget normalizes a domain or URL string into a Target.
// A missing scheme defaults to https. Internationalized hosts are converted
// to their ASCII form so that equal hosts compare equal.
func NewTarget(raw string) (Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Target{}, ErrEmptyTarget
	}

	withScheme := trimmed
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, schemeHTTP+"://") && !strings.HasPrefix(lower, schemeHTTPS+"://") {
		if strings.Contains(lower, "://") {
			return Target{}, ErrInvalidTarget
		}
		withScheme = schemeHTTPS + "://" + trimmed
	}

	u, err := url.Parse(withScheme)
	if err != nil || u.Hostname() == "" {
		return Target{}, ErrInvalidTarget
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.User = nil
	u.Fragment = ""

	host, err := normalizeHost(u.Hostname())
	if err != nil {
		return Target{}, err
	}
	switch port := u.Port(); {
	case port != "":
		u.Host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		u.Host = "[" + host + "]"
	default:
		u.Host = host
	}

	return Target{
		raw:  trimmed,
		url:  u.String(),
		host: host,
	}, nil
}

// MustNewTarget creates a new Target or panics if invalid.
// Use only for known-valid targets in tests or initialization.
func MustNewTarget(raw string) Target {
	t, err := NewTarget(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// normalizeHost lowercases the host and converts IDNs to punycode.
// IP literals are returned as-is.
func normalizeHost(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if net.ParseIP(host) != nil {
		return host, nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || ascii == "" {
		return "", ErrInvalidTarget
	}
	return ascii, nil
}

// String returns the target as it was supplied, trimmed.
func (t Target) String() string {
	return t.raw
}

// URL returns the normalized URL including the scheme.
func (t Target) URL() string {
	return t.url
}

// Key returns the lowercase bare host without port.
func (t Target) Key() string {
	return t.host
}

// IsZero returns true if this is a zero value Target.
func (t Target) IsZero() bool {
	return t.url == ""
}

// Equals reports whether two targets refer to the same bare host.
func (t Target) Equals(other Target) bool {
	return t.host == other.host
}

// UniqueTargets parses the given strings and drops duplicates by bare host,
// keeping the first occurrence. Invalid entries are returned separately so
// callers can report them without aborting the whole list.
func UniqueTargets(raws []string) ([]Target, map[string]error) {
	seen := make(map[string]bool, len(raws))
	targets := make([]Target, 0, len(raws))
	invalid := make(map[string]error)

	for _, raw := range raws {
		t, err := NewTarget(raw)
		if err != nil {
			invalid[raw] = err
			continue
		}
		if seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true
		targets = append(targets, t)
	}

	return targets, invalid
}
