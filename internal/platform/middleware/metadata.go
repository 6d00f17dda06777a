package middleware

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// ClientMetadata extracts the client IP address, User-Agent, and a coarse
// device summary from the request and adds them to the context for audit
// enrichment. This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		ua := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, ua)
		if summary := DeviceSummaryFromUserAgent(ua); summary != "" {
			ctx = requestcontext.WithDeviceSummary(ctx, summary)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...).
	// The first entry is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// X-Real-IP is set by nginx and other proxies.
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" for IPv4 and "[::1]:port" for IPv6.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}

// DeviceSummaryFromUserAgent reduces a raw User-Agent string to a
// human-readable "Browser on OS" summary (e.g. "Chrome on macOS") suitable
// for audit trails. Returns "" for an empty input.
func DeviceSummaryFromUserAgent(userAgentString string) string {
	if userAgentString == "" {
		return ""
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}

	return strings.TrimSpace(browser + " on " + os)
}
