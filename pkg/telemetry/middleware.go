package telemetry

import (
	"net/http"
	"strings"
)

// requiredHeaders are the SDK telemetry headers every protected request
// must carry, per §4.4/§6: client version, platform, process
// fingerprint, session id, environment, and interpreter version, plus
// an explicit enabled flag.
var requiredHeaders = []string{
	"X-Client-Version",
	"X-Client-Platform",
	"X-Process-Fingerprint",
	"X-Session-ID",
	"X-Client-Environment",
	"X-Client-Interpreter-Version",
}

const (
	telemetryEnabledHeader = "X-Telemetry-Enabled"
	userAgentPrefix        = "bradax-sdk/"
)

// BypassSink receives one event per rejected request, recorded as a
// bypass-attempt before authentication runs.
type BypassSink interface {
	RecordEvent(e Event) error
}

// ValidationMiddleware rejects requests to protected endpoints that are
// missing or carry malformed telemetry headers, before authentication
// runs. It never reads the request body. publicPaths bypass the check
// entirely (health/info/token-issuance endpoints have no SDK session
// yet).
func ValidationMiddleware(sink BypassSink, publicPaths []string) func(http.Handler) http.Handler {
	isPublic := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		isPublic[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := isPublic[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if reason := missingHeaderReason(r); reason != "" {
				if sink != nil {
					_ = sink.RecordEvent(Event{
						EventType: EventError,
						RequestID: r.Header.Get("X-Request-ID"),
						Reason:    "telemetry bypass attempt: " + reason,
					})
				}
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func missingHeaderReason(r *http.Request) string {
	for _, h := range requiredHeaders {
		if r.Header.Get(h) == "" {
			return "missing header " + h
		}
	}
	if r.Header.Get(telemetryEnabledHeader) != "true" {
		return "telemetry not enabled"
	}
	if !strings.HasPrefix(r.Header.Get("User-Agent"), userAgentPrefix) {
		return "unrecognized user-agent"
	}
	return ""
}
