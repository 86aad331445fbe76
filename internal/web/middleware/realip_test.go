package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// seenAddr runs a request through TrustedRealIP and reports the
// RemoteAddr the inner handler observed.
func seenAddr(t *testing.T, trusted []string, remoteAddr string, headers map[string]string) string {
	t.Helper()

	var got string
	handler := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.RemoteAddr
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestTrustedRealIP_TrustedProxyHeaderHonored(t *testing.T) {
	got := seenAddr(t, []string{"127.0.0.1"}, "127.0.0.1:9999",
		map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.2"})
	assert.Equal(t, "198.51.100.9", got)
}

func TestTrustedRealIP_XRealIPWinsOverForwardedFor(t *testing.T) {
	got := seenAddr(t, []string{"10.0.0.0/8"}, "10.1.2.3:443", map[string]string{
		"X-Real-IP":       "198.51.100.9",
		"X-Forwarded-For": "203.0.113.77",
	})
	assert.Equal(t, "198.51.100.9", got)
}

func TestTrustedRealIP_UntrustedPeerKeepsSocketAddr(t *testing.T) {
	got := seenAddr(t, []string{"127.0.0.1"}, "203.0.113.5:1234",
		map[string]string{"X-Real-IP": "10.0.0.1"})
	assert.Equal(t, "203.0.113.5:1234", got)
}

func TestTrustedRealIP_NoProxiesConfigured(t *testing.T) {
	got := seenAddr(t, nil, "203.0.113.5:1234",
		map[string]string{"X-Real-IP": "10.0.0.1"})
	assert.Equal(t, "203.0.113.5:1234", got)
}

func TestTrustedRealIP_GarbageHeaderIgnored(t *testing.T) {
	got := seenAddr(t, []string{"127.0.0.1"}, "127.0.0.1:9999",
		map[string]string{"X-Real-IP": "not-an-ip"})
	assert.Equal(t, "127.0.0.1:9999", got)
}

func TestParseTrustedNets_SkipsInvalidEntries(t *testing.T) {
	nets := parseTrustedNets([]string{"10.0.0.0/8", "garbage", "", "192.168.1.1"})
	assert.Len(t, nets, 2)
}
