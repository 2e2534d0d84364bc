package requestmeta

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"
)

func TestIsHTTPS(t *testing.T) {
	t.Parallel()

	plain := httptest.NewRequest("GET", "http://localhost/", nil)
	if IsHTTPS(plain, SchemePolicy{}) {
		t.Fatal("expected plain request to be http")
	}

	secure := httptest.NewRequest("GET", "http://localhost/", nil)
	secure.TLS = &tls.ConnectionState{}
	if !IsHTTPS(secure, SchemePolicy{}) {
		t.Fatal("expected TLS request to be https")
	}

	forwarded := httptest.NewRequest("GET", "http://localhost/", nil)
	forwarded.Header.Set("X-Forwarded-Proto", "https")
	if IsHTTPS(forwarded, SchemePolicy{}) {
		t.Fatal("expected forwarded proto to be ignored by default")
	}
	if !IsHTTPS(forwarded, SchemePolicy{TrustForwardedProto: true}) {
		t.Fatal("expected trusted forwarded proto to mark https")
	}
}

func TestSameOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		host    string
		origin  string
		referer string
		want    bool
	}{
		{name: "matching origin", host: "localhost:8086", origin: "http://localhost:8086", want: true},
		{name: "default port", host: "addons.example", origin: "http://addons.example", want: true},
		{name: "referer fallback", host: "localhost:8086", referer: "http://localhost:8086/en-US/firefox/", want: true},
		{name: "other host", host: "localhost:8086", origin: "http://evil.example:8086"},
		{name: "other port", host: "localhost:8086", origin: "http://localhost:9000"},
		{name: "other scheme", host: "localhost:8086", origin: "https://localhost:8086"},
		{name: "no proof", host: "localhost:8086"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("POST", "/experiments/sync", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				r.Header.Set("Referer", tt.referer)
			}
			if got := SameOrigin(r, SchemePolicy{}); got != tt.want {
				t.Fatalf("SameOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameOriginNilRequest(t *testing.T) {
	t.Parallel()
	if SameOrigin(nil, SchemePolicy{}) {
		t.Fatal("expected nil request to fail")
	}
}
