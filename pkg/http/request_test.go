package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	// Spoofed forwarding headers from an untrusted peer
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	config := &pkghttp.IPConfig{
		TrustedProxies: pkghttp.ParseTrustedProxies([]string{"10.0.0.0/8", "127.0.0.1/32"}),
	}

	assert.Equal(t, "203.0.113.10", pkghttp.ClientIP(req, config))
}

func TestClientIP_TrustedProxy_UsesXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "203.0.113.42, 10.0.0.5")

	config := &pkghttp.IPConfig{
		TrustedProxies: pkghttp.ParseTrustedProxies([]string{"10.0.0.0/8"}),
	}

	assert.Equal(t, "203.0.113.42", pkghttp.ClientIP(req, config))
}

func TestClientIP_TrustedProxy_FallsBackToXRealIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "garbage, also-garbage")
	req.Header.Set("X-Real-IP", "198.51.100.7")

	config := &pkghttp.IPConfig{
		TrustedProxies: pkghttp.ParseTrustedProxies([]string{"10.0.0.0/8"}),
	}

	assert.Equal(t, "198.51.100.7", pkghttp.ClientIP(req, config))
}

func TestClientIP_IPv6_TrustedProxy(t *testing.T) {
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "[::1]:54321"
	req.Header.Set("X-Forwarded-For", "2001:db8::1")

	config := &pkghttp.IPConfig{
		TrustedProxies: pkghttp.ParseTrustedProxies([]string{"::1"}),
	}

	assert.Equal(t, "2001:db8::1", pkghttp.ClientIP(req, config))
}

func TestClientIP_NoConfig(t *testing.T) {
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "203.0.113.10", pkghttp.ClientIP(req, nil))
}

func TestParseTrustedProxies_SkipsInvalid(t *testing.T) {
	prefixes := pkghttp.ParseTrustedProxies([]string{"invalid", " 10.0.0.0/8 ", "", "192.168.1.1"})

	if assert.Len(t, prefixes, 2) {
		assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
		assert.Equal(t, "192.168.1.1/32", prefixes[1].String())
	}
}
