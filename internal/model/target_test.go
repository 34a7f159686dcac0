package model

import (
	"errors"
	"testing"
)

func TestNewTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantURL string
		wantKey string
		wantErr error
	}{
		{
			name:    "bare domain gets https scheme",
			raw:     "example.com",
			wantURL: "https://example.com",
			wantKey: "example.com",
		},
		{
			name:    "uppercase host is lowercased",
			raw:     "  Shop.Example.COM ",
			wantURL: "https://shop.example.com",
			wantKey: "shop.example.com",
		},
		{
			name:    "http scheme is kept",
			raw:     "http://example.com/collections",
			wantURL: "http://example.com/collections",
			wantKey: "example.com",
		},
		{
			name:    "port is kept in URL but not in key",
			raw:     "http://127.0.0.1:8080",
			wantURL: "http://127.0.0.1:8080",
			wantKey: "127.0.0.1",
		},
		{
			name:    "ipv6 host keeps brackets without port",
			raw:     "http://[::1]",
			wantURL: "http://[::1]",
			wantKey: "::1",
		},
		{
			name:    "ipv6 host with port",
			raw:     "[2001:DB8::1]:8443",
			wantURL: "https://[2001:db8::1]:8443",
			wantKey: "2001:db8::1",
		},
		{
			name:    "trailing dot is dropped",
			raw:     "example.com.",
			wantURL: "https://example.com",
			wantKey: "example.com",
		},
		{
			name:    "internationalized host becomes punycode",
			raw:     "bücher.example",
			wantURL: "https://xn--bcher-kva.example",
			wantKey: "xn--bcher-kva.example",
		},
		{
			name:    "empty string",
			raw:     "   ",
			wantErr: ErrEmptyTarget,
		},
		{
			name:    "unsupported scheme",
			raw:     "ftp://example.com",
			wantErr: ErrInvalidTarget,
		},
		{
			name:    "no host",
			raw:     "https://",
			wantErr: ErrInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewTarget(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if !got.IsZero() {
					t.Errorf("expected zero target on error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.URL() != tt.wantURL {
				t.Errorf("URL() = %q, want %q", got.URL(), tt.wantURL)
			}
			if got.Key() != tt.wantKey {
				t.Errorf("Key() = %q, want %q", got.Key(), tt.wantKey)
			}
		})
	}
}

func TestTargetEquals(t *testing.T) {
	t.Parallel()

	a := MustNewTarget("Example.com")
	b := MustNewTarget("http://EXAMPLE.com/products")
	c := MustNewTarget("other.com")

	if !a.Equals(b) {
		t.Error("expected targets with the same bare host to be equal")
	}
	if a.Equals(c) {
		t.Error("expected different hosts to differ")
	}
}

func TestUniqueTargets(t *testing.T) {
	t.Parallel()

	targets, invalid := UniqueTargets([]string{
		"example.com",
		"EXAMPLE.COM",
		"https://example.com/shop",
		"second.com",
		"",
		"ftp://bad.com",
	})

	if len(targets) != 2 {
		t.Fatalf("expected 2 unique targets, got %d: %v", len(targets), targets)
	}
	if targets[0].Key() != "example.com" || targets[1].Key() != "second.com" {
		t.Errorf("unexpected order or keys: %q, %q", targets[0].Key(), targets[1].Key())
	}
	if targets[0].String() != "example.com" {
		t.Errorf("expected first occurrence to be kept, got %q", targets[0].String())
	}
	if len(invalid) != 2 {
		t.Errorf("expected 2 invalid entries, got %d", len(invalid))
	}
}

func TestMustNewTargetPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid target")
		}
	}()
	_ = MustNewTarget("")
}
