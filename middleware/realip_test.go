package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustedRealIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	var seen string
	handler := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		remoteAddr string
		header     string
		value      string
		want       string
	}{
		{"trusted proxy forwards X-Real-IP", "10.1.2.3:4000", "X-Real-IP", "198.51.100.7", "198.51.100.7"},
		{"trusted proxy forwards X-Forwarded-For", "10.1.2.3:4000", "X-Forwarded-For", "198.51.100.8", "198.51.100.8"},
		{"untrusted peer cannot spoof X-Real-IP", "203.0.113.9:4000", "X-Real-IP", "198.51.100.7", "203.0.113.9:4000"},
		{"untrusted peer cannot spoof X-Forwarded-For", "203.0.113.9:4000", "X-Forwarded-For", "198.51.100.7", "203.0.113.9:4000"},
		{"no header from trusted proxy", "10.1.2.3:4000", "", "", "10.1.2.3:4000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestTrustedRealIP_NoProxiesConfigured(t *testing.T) {
	var seen string
	handler := TrustedRealIP(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
		assert.Empty(t, r.Header.Get("X-Real-IP"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	req.Header.Set("X-Real-IP", "198.51.100.7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "127.0.0.1:4000", seen)
}

func TestPeerTrusted(t *testing.T) {
	trusted := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("2001:db8::/32"),
	}

	assert.True(t, peerTrusted("10.9.9.9:80", trusted))
	assert.True(t, peerTrusted("[2001:db8::1]:443", trusted))
	assert.True(t, peerTrusted("[::ffff:10.0.0.1]:80", trusted))
	assert.False(t, peerTrusted("192.0.2.1:80", trusted))
	assert.False(t, peerTrusted("garbage", trusted))
	assert.False(t, peerTrusted("10.9.9.9:80", nil))
}
