package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/jowpereira/bradax/pkg/auth"
	"github.com/jowpereira/bradax/pkg/identity"
	"github.com/jowpereira/bradax/pkg/ingress"
	"github.com/jowpereira/bradax/pkg/ratelimit"
	"github.com/jowpereira/bradax/pkg/telemetry"
)

// PublicPaths are the endpoints the telemetry-validation middleware lets
// through without SDK telemetry headers. The auth middleware keeps its
// own list of token-free paths in pkg/auth, with the same three entries;
// the two lists are separate values.
var PublicPaths = []string{
	"/health",
	"/api/v1/system/info",
	"/api/v1/auth/token",
}

// Routes builds the bare v1 mux: one registration per endpoint in §6,
// with no middleware applied. NewHandler wraps this in the full
// Ingress Middleware Chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/api/v1/system/info", s.HandleSystemInfo)
	mux.HandleFunc("/api/v1/system/telemetry", s.HandleSystemTelemetry)
	mux.HandleFunc("/api/v1/auth/token", s.HandleToken)
	mux.HandleFunc("/api/v1/auth/validate", s.HandleValidate)
	mux.HandleFunc("/api/v1/llm/invoke", s.HandleInvoke)
	mux.HandleFunc("/api/v1/llm/models", s.HandleModels)
	mux.HandleFunc("/api/v1/projects/", s.HandleProjects)
	return mux
}

// ChainConfig bundles the tunables NewHandler needs to build the
// Ingress Middleware Chain (§4.5) around the routes.
type ChainConfig struct {
	TrustedHosts   []string
	IsProduction   bool
	AllowedOrigins []string
	Limiter        *ratelimit.Limiter
	Logger         *slog.Logger
}

// NewHandler wires Routes into the full, fixed-order Ingress Middleware
// Chain from §4.5: trusted-host filter, CORS, security headers, rate
// limiter, request logger, telemetry-validation, then the auth
// middleware immediately outside the routes themselves.
func NewHandler(s *Server, ks identity.KeySet, sink telemetry.BypassSink, authSink auth.FailureSink, cfg ChainConfig) http.Handler {
	protected := auth.NewMiddleware(ks, authSink)(s.Routes())
	withTelemetryCheck := telemetry.ValidationMiddleware(sink, PublicPaths)(protected)

	return ingress.Chain(withTelemetryCheck,
		ingress.TrustedHostFilter(cfg.TrustedHosts),
		ingress.CORSMiddleware(cfg.IsProduction, cfg.AllowedOrigins),
		ingress.SecurityHeaders,
		ingress.RateLimiterMiddleware(cfg.Limiter),
		ingress.RequestIDMiddleware,
		ingress.RequestLogger(cfg.Logger),
	)
}
