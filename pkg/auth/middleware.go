package auth

import (
	"net/http"
	"strings"

	"github.com/jowpereira/bradax/pkg/api"
	"github.com/jowpereira/bradax/pkg/identity"
	"github.com/jowpereira/bradax/pkg/reasoncode"
)

// publicPaths are endpoints that do not require a bearer token.
var publicPaths = []string{
	"/health",
	"/api/v1/system/info",
	"/api/v1/auth/token",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// FailureSink receives one outcome report per request passing through
// the middleware, so the Auth Service's failure semantics (§4.1: log
// every rejection as an authentication event, never with secret
// material) live in one place. outcome is "success" or "failure".
type FailureSink interface {
	RecordAuthResult(outcome, reason, projectID string)
}

// NewMiddleware builds the bearer-token verification middleware. If ks
// is nil, every non-public request is rejected (fail-closed).
func NewMiddleware(ks identity.KeySet, sink FailureSink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			report := func(outcome, reason, projectID string) {
				if sink != nil {
					sink.RecordAuthResult(outcome, reason, projectID)
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				report("failure", "missing authorization header", "")
				writeAuthError(w, reasoncode.InvalidToken(nil))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				report("failure", "malformed authorization header", "")
				writeAuthError(w, reasoncode.InvalidToken(nil))
				return
			}

			if ks == nil {
				report("failure", "auth not configured", "")
				writeAuthError(w, reasoncode.InvalidToken(nil))
				return
			}

			principal, err := VerifyToken(ks, parts[1])
			if err != nil {
				report("failure", err.Error(), "")
				writeAuthError(w, err)
				return
			}

			report("success", "", principal.ProjectID)
			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	if rc, ok := reasoncode.As(err); ok {
		api.WriteReasonError(w, rc)
		return
	}
	api.WriteReasonError(w, reasoncode.Internal(err))
}
