// Command bradax runs the LLM governance broker: token issuance,
// guardrail-checked model invocation, and append-only telemetry, served
// over HTTP behind the fixed Ingress Middleware Chain.
package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jowpereira/bradax/pkg/api"
	"github.com/jowpereira/bradax/pkg/config"
	"github.com/jowpereira/bradax/pkg/guardrail"
	"github.com/jowpereira/bradax/pkg/httpapi"
	"github.com/jowpereira/bradax/pkg/identity"
	"github.com/jowpereira/bradax/pkg/llm"
	"github.com/jowpereira/bradax/pkg/orchestrator"
	"github.com/jowpereira/bradax/pkg/project"
	"github.com/jowpereira/bradax/pkg/ratelimit"
	"github.com/jowpereira/bradax/pkg/rules"
	"github.com/jowpereira/bradax/pkg/telemetry"
)

func main() {
	os.Exit(Run(os.Stdout, os.Stderr))
}

// startServer is a variable so tests can substitute a non-blocking stub.
var startServer = runServer

// Run is the process entrypoint, split out from main so it is testable
// without exiting the test binary.
func Run(stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "bradax: config: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.LogLevel)
	startServer(cfg, logger)
	return 0
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func runServer(cfg *config.Config, logger *slog.Logger) {
	logger.Info("bradax starting", "env", cfg.Env, "port", cfg.Port)

	projects, err := project.Load(filepath.Join(cfg.DataDir, "projects.json"))
	if err != nil {
		log.Fatalf("bradax: load projects: %v", err)
	}

	ruleStore, err := rules.Load(guardrailsPath(cfg.DataDir))
	if err != nil {
		log.Fatalf("bradax: load guardrails: %v", err)
	}

	keySet, err := identity.NewDerivedKeySet(cfg.MasterJWTSecret)
	if err != nil {
		log.Fatalf("bradax: init key set: %v", err)
	}

	writer, err := telemetry.Open(cfg.DataDir, cfg.InteractionStreamCap)
	if err != nil {
		log.Fatalf("bradax: open telemetry: %v", err)
	}

	api.SetErrorSink(writer)

	engine := guardrail.New(writer)
	adapter := llm.NewOpenAIAdapter(cfg.ProviderAPIKey, time.Duration(cfg.ProviderTimeoutSeconds)*time.Second)
	providerTimeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	orc := orchestrator.New(projects, ruleStore, engine, adapter, writer, providerTimeout)

	server := &httpapi.Server{
		Projects:     projects,
		KeySet:       keySet,
		Orchestrator: orc,
		Telemetry:    writer,
		JWTTTL:       time.Duration(cfg.JWTExpireMinutes) * time.Minute,
		Version:      "v1",
	}

	limiter := ratelimit.New(ratelimit.Policy{
		RPM:           cfg.RateLimitRPM,
		RPH:           cfg.RateLimitRPH,
		MaxConcurrent: cfg.MaxConcurrent,
	})

	handler := httpapi.NewHandler(server, keySet, writer, writer, httpapi.ChainConfig{
		IsProduction: cfg.IsProduction(),
		Limiter:      limiter,
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: providerTimeout + 30*time.Second,
	}

	go func() {
		logger.Info("bradax listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("bradax shutting down")
}

// guardrailsPath prefers a hand-authored YAML rule file when present,
// falling back to the canonical JSON snapshot (§6).
func guardrailsPath(dataDir string) string {
	yamlPath := filepath.Join(dataDir, "guardrails.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	return filepath.Join(dataDir, "guardrails.json")
}
