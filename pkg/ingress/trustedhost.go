package ingress

import (
	"net/http"
	"strings"
)

// TrustedHostFilter rejects requests whose Host header is not in
// allowedHosts. An empty allowedHosts disables the filter (useful for
// local development where the host varies).
func TrustedHostFilter(allowedHosts []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(allowedHosts) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := r.Host
			if idx := strings.IndexByte(host, ':'); idx >= 0 {
				host = host[:idx]
			}
			for _, h := range allowedHosts {
				if strings.EqualFold(h, host) {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.WriteHeader(http.StatusMisdirectedRequest)
		})
	}
}
