package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/tavern-gate/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractClientIP(t *testing.T) {
	trusted, invalid := pkghttp.NewIPConfig([]string{"10.0.0.0/8", " ::1/128 ", "2001:db8::/32"})
	require.Empty(t, invalid)

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		config     *pkghttp.IPConfig
		want       string
	}{
		{
			name:       "direct client cannot pick its address",
			remoteAddr: "203.0.113.10:54321",
			xff:        "127.0.0.1, 5.6.7.8",
			xRealIP:    "192.168.1.1",
			config:     trusted,
			want:       "203.0.113.10",
		},
		{
			name:       "no config trusts only the socket",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			want:       "203.0.113.10",
		},
		{
			name:       "trusted proxy forwards first valid entry",
			remoteAddr: "10.0.0.5:54321",
			xff:        "garbage, 203.0.113.42, 10.0.0.5",
			config:     trusted,
			want:       "203.0.113.42",
		},
		{
			name:       "x-real-ip when forwarded-for has nothing usable",
			remoteAddr: "10.0.0.5:54321",
			xff:        "garbage, not-an-ip",
			xRealIP:    " 203.0.113.77 ",
			config:     trusted,
			want:       "203.0.113.77",
		},
		{
			name:       "trusted proxy without headers",
			remoteAddr: "10.0.0.5:54321",
			config:     trusted,
			want:       "10.0.0.5",
		},
		{
			name:       "ipv6 proxy and client",
			remoteAddr: "[::1]:54321",
			xff:        "2001:db8::1",
			config:     trusted,
			want:       "2001:db8::1",
		},
		{
			name:       "mapped socket address is unmapped",
			remoteAddr: "[::ffff:203.0.113.10]:54321",
			want:       "203.0.113.10",
		},
		{
			name:       "mapped proxy address still matches ipv4 range",
			remoteAddr: "[::ffff:10.0.0.5]:54321",
			xff:        "::ffff:198.51.100.7",
			config:     trusted,
			want:       "198.51.100.7",
		},
		{
			name:       "remote address without port",
			remoteAddr: "203.0.113.10",
			want:       "203.0.113.10",
		},
		{
			name:       "missing remote address",
			remoteAddr: "",
			want:       "unknown",
		},
		{
			name:       "unparsed config literal is parsed on demand",
			remoteAddr: "10.0.0.5:54321",
			xff:        "203.0.113.42",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}},
			want:       "203.0.113.42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/auth/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}

func TestNewIPConfig_InvalidRangesNeverMatch(t *testing.T) {
	config, invalid := pkghttp.NewIPConfig([]string{"nope", "10.0.0.0/33"})
	assert.Equal(t, []string{"nope", "10.0.0.0/33"}, invalid)

	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "10.0.0.5", pkghttp.ExtractClientIP(req, config))
}

func TestNewIPConfig_ReportsOnlyInvalidEntries(t *testing.T) {
	_, invalid := pkghttp.NewIPConfig([]string{"10.0.0.0/8", "nope", "127.0.0.1/32"})
	assert.Equal(t, []string{"nope"}, invalid)
}
