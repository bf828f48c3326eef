package dispatch

import (
	"net/http"
	"strings"
)

const masked = "****"

// maskHeaders flattens h for logging with credentials replaced.
func maskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if isSensitiveHeaderKey(k) {
			out[k] = masked
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func isSensitiveHeaderKey(k string) bool {
	kk := strings.ToLower(strings.TrimSpace(k))
	switch kk {
	case "authorization", "proxy-authorization", "cookie", "set-cookie", "x-api-key", "x-auth-token":
		return true
	}

	return strings.Contains(kk, "token") ||
		strings.Contains(kk, "secret") ||
		strings.Contains(kk, "password") ||
		strings.Contains(kk, "api-key") ||
		strings.Contains(kk, "apikey")
}
