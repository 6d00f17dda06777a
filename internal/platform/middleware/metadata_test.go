package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

func TestClientMetadata(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
		expectedUA string
	}{
		{
			name: "extracts from X-Forwarded-For",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1, 198.51.100.1",
				"User-Agent":      "Mozilla/5.0",
			},
			remoteAddr: "192.168.1.1:12345",
			expectedIP: "203.0.113.1",
			expectedUA: "Mozilla/5.0",
		},
		{
			name: "extracts from X-Real-IP when no X-Forwarded-For",
			headers: map[string]string{
				"X-Real-IP":  "203.0.113.2",
				"User-Agent": "curl/7.64.1",
			},
			remoteAddr: "192.168.1.1:12345",
			expectedIP: "203.0.113.2",
			expectedUA: "curl/7.64.1",
		},
		{
			name: "falls back to RemoteAddr",
			headers: map[string]string{
				"User-Agent": "test-agent",
			},
			remoteAddr: "192.168.1.100:54321",
			expectedIP: "192.168.1.100",
			expectedUA: "test-agent",
		},
		{
			name:       "handles missing user agent",
			headers:    map[string]string{},
			remoteAddr: "10.0.0.1:8080",
			expectedIP: "10.0.0.1",
			expectedUA: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedCtx context.Context
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedCtx = r.Context()
				w.WriteHeader(http.StatusOK)
			})

			handler := ClientMetadata(testHandler)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedIP, requestcontext.ClientIP(capturedCtx), "IP address mismatch")
			assert.Equal(t, tt.expectedUA, requestcontext.UserAgent(capturedCtx), "User-Agent mismatch")
		})
	}
}

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{
			name: "single IP in X-Forwarded-For",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1",
			},
			remoteAddr: "192.168.1.1:12345",
			expectedIP: "203.0.113.1",
		},
		{
			name: "multiple IPs takes first",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1, 198.51.100.1, 192.168.1.1",
			},
			remoteAddr: "192.168.1.1:12345",
			expectedIP: "203.0.113.1",
		},
		{
			name: "X-Forwarded-For with whitespace",
			headers: map[string]string{
				"X-Forwarded-For": "  203.0.113.1  , 198.51.100.1",
			},
			remoteAddr: "192.168.1.1:12345",
			expectedIP: "203.0.113.1",
		},
		{
			name:       "IPv6 RemoteAddr",
			headers:    map[string]string{},
			remoteAddr: "[::1]:8080",
			expectedIP: "[::1]",
		},
		{
			name:       "empty RemoteAddr",
			headers:    map[string]string{},
			remoteAddr: "",
			expectedIP: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			assert.Equal(t, tt.expectedIP, ClientIPFromRequest(req))
		})
	}
}

func TestDeviceSummaryFromUserAgent(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		expected  string
	}{
		{
			name:      "desktop chrome",
			userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			expected:  "Chrome on Intel Mac OS X 10_15_7",
		},
		{
			name:      "empty user agent",
			userAgent: "",
			expected:  "",
		},
		{
			name:      "unrecognized user agent",
			userAgent: "some-custom-client/1.0",
			expected:  "Unknown Browser on Unknown OS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeviceSummaryFromUserAgent(tt.userAgent))
		})
	}
}

func TestDeviceSummaryStoredInContext(t *testing.T) {
	var capturedCtx context.Context
	handler := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedCtx = r.Context()
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotEmpty(t, requestcontext.DeviceSummary(capturedCtx))
	assert.Contains(t, requestcontext.DeviceSummary(capturedCtx), "Chrome")
}
