package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jowpereira/bradax/pkg/api"
	"github.com/jowpereira/bradax/pkg/auth"
	"github.com/jowpereira/bradax/pkg/identity"
	"github.com/jowpereira/bradax/pkg/orchestrator"
	"github.com/jowpereira/bradax/pkg/project"
	"github.com/jowpereira/bradax/pkg/reasoncode"
	"github.com/jowpereira/bradax/pkg/telemetry"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Server holds the long-lived collaborators every handler needs. It is
// built once at startup and never mutated.
type Server struct {
	Projects     *project.Store
	KeySet       identity.KeySet
	Orchestrator *orchestrator.Orchestrator
	Telemetry    *telemetry.Writer
	JWTTTL       time.Duration
	Version      string
}

// HandleToken issues a bearer token for a presented project_id/api_key
// pair, per §4.1's verification rule.
func (s *Server) HandleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w)
		return
	}

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		api.WriteReasonError(w, reasoncode.MalformedRequest(err.Error()))
		return
	}

	proj, err := s.Projects.Get(req.ProjectID)
	if err != nil || !proj.IsActive() {
		s.recordAuth("failure", "unknown or inactive project", req.ProjectID)
		api.WriteReasonError(w, reasoncode.UnknownProject(req.ProjectID))
		return
	}

	if !auth.VerifyAPIKey(req.APIKey, proj.APIKeyHash) {
		s.recordAuth("failure", "api key verification failed", req.ProjectID)
		api.WriteReasonError(w, reasoncode.InvalidToken(nil))
		return
	}

	token, err := auth.IssueToken(r.Context(), s.KeySet, proj.ProjectID, nil, s.JWTTTL)
	if err != nil {
		api.WriteInternal(w, err)
		return
	}

	s.recordAuth("success", "", proj.ProjectID)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresIn: int(s.JWTTTL.Seconds())})
}

// HandleValidate reports whether the bearer token the auth middleware
// already verified is still valid; reaching this handler means it is.
func (s *Server) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w)
		return
	}
	principal, err := auth.GetPrincipal(r.Context())
	if err != nil {
		api.WriteReasonError(w, reasoncode.InvalidToken(err))
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, ProjectID: principal.ProjectID, Scopes: principal.Scopes})
}

// HandleInvoke runs the full §4.3 pipeline for one model invocation.
func (s *Server) HandleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w)
		return
	}

	principal, err := auth.GetPrincipal(r.Context())
	if err != nil {
		api.WriteReasonError(w, reasoncode.InvalidToken(err))
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		api.WriteReasonError(w, reasoncode.MalformedRequest("unreadable request body"))
		return
	}

	if err := validateInvokeShape(raw); err != nil {
		api.WriteReasonError(w, reasoncode.MalformedRequest(err.Error()))
		return
	}

	var req invokeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		api.WriteReasonError(w, reasoncode.MalformedRequest(err.Error()))
		return
	}

	if req.ProjectID != principal.ProjectID {
		s.recordAuth("failure", "request project_id does not match token", principal.ProjectID)
		api.WriteReasonError(w, reasoncode.ProjectMismatch(req.ProjectID))
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	env, err := s.Orchestrator.Invoke(r.Context(), principal, orchestrator.Request{
		RequestID:        requestID,
		Model:            req.Model,
		Messages:         req.messages(),
		MaxTokens:        req.Payload.MaxTokens,
		Temperature:      req.Payload.Temperature,
		CustomGuardrails: req.CustomGuardrails,
	})
	if err != nil {
		api.WriteInternal(w, err)
		return
	}

	api.WriteInvocationResult(w, env)
}

// HandleModels enumerates the caller's project's allowed models.
func (s *Server) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w)
		return
	}
	principal, err := auth.GetPrincipal(r.Context())
	if err != nil {
		api.WriteReasonError(w, reasoncode.InvalidToken(err))
		return
	}
	proj, err := s.Projects.Get(principal.ProjectID)
	if err != nil {
		api.WriteReasonError(w, reasoncode.UnknownProject(principal.ProjectID))
		return
	}
	writeJSON(w, http.StatusOK, modelsResponse{Models: proj.AllowedModels})
}

// HandleProjects stubs the project-admin CRUD surface, out of this
// core's scope per §6 ("listed for completeness").
func (s *Server) HandleProjects(w http.ResponseWriter, r *http.Request) {
	api.WriteError(w, http.StatusNotImplemented, "Not Implemented", "project administration is not part of this core")
}

// HandleSystemTelemetry ingests one SDK-side client-reported event.
func (s *Server) HandleSystemTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w)
		return
	}
	var payload struct {
		RequestID string            `json:"request_id"`
		Reason    string            `json:"reason"`
		Metadata  map[string]string `json:"metadata"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		api.WriteReasonError(w, reasoncode.MalformedRequest(err.Error()))
		return
	}

	projectID := ""
	if principal, err := auth.GetPrincipal(r.Context()); err == nil {
		projectID = principal.ProjectID
	}

	if s.Telemetry != nil {
		_ = s.Telemetry.RecordEvent(telemetry.Event{
			EventType: telemetry.EventClientReported,
			RequestID: payload.RequestID,
			ProjectID: projectID,
			Reason:    payload.Reason,
			Metadata:  payload.Metadata,
		})
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleSystemInfo answers a public liveness/info probe.
func (s *Server) HandleSystemInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, systemInfoResponse{Service: "bradax", Version: s.Version})
}

// HandleHealth answers a bare liveness probe.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) recordAuth(outcome, reason, projectID string) {
	if s.Telemetry != nil {
		s.Telemetry.RecordAuthResult(outcome, reason, projectID)
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
