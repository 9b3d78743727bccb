package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jowpereira/bradax/pkg/auth"
	"github.com/jowpereira/bradax/pkg/guardrail"
	"github.com/jowpereira/bradax/pkg/llm"
	"github.com/jowpereira/bradax/pkg/orchestrator"
	"github.com/jowpereira/bradax/pkg/project"
	"github.com/jowpereira/bradax/pkg/reasoncode"
	"github.com/jowpereira/bradax/pkg/rules"
	"github.com/jowpereira/bradax/pkg/telemetry"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	result llm.Result
	err    error
}

func (f *fakeAdapter) Invoke(ctx context.Context, modelID string, messages []llm.Message, params llm.Parameters) (llm.Result, error) {
	return f.result, f.err
}

type fixedRuleSource struct{ set *rules.Set }

func (f fixedRuleSource) Snapshot() *rules.Set { return f.set }

func newProjectStore(t *testing.T, projects []*project.Project) *project.Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.json")
	data, err := json.Marshal(projects)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	s, err := project.Load(path)
	require.NoError(t, err)
	return s
}

func newWriter(t *testing.T) *telemetry.Writer {
	t.Helper()
	w, err := telemetry.Open(t.TempDir(), 0)
	require.NoError(t, err)
	return w
}

func testProject() *project.Project {
	return &project.Project{
		ProjectID:       "proj_real_001",
		APIKeyHash:      "abc123",
		AllowedModels:   []string{"gpt-4.1-nano"},
		Status:          project.StatusActive,
		BudgetRemaining: 10,
	}
}

func TestInvoke_HappyPath(t *testing.T) {
	projects := newProjectStore(t, []*project.Project{testProject()})
	writer := newWriter(t)
	engine := guardrail.New(writer)
	adapter := &fakeAdapter{result: llm.Result{Content: "Fernando Henrique Cardoso", Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}}}
	orc := orchestrator.New(projects, fixedRuleSource{rules.NewSet()}, engine, adapter, writer, 5*time.Second)

	principal := &auth.Principal{ProjectID: "proj_real_001"}
	env, err := orc.Invoke(context.Background(), principal, orchestrator.Request{
		RequestID: "req-1",
		Model:     "gpt-4.1-nano",
		Messages:  []llm.Message{{Role: "user", Content: "Who was president of Brazil in 2002?"}},
	})

	require.NoError(t, err)
	require.True(t, env.Success)
	require.Equal(t, "gpt-4.1-nano", env.ModelUsed)
	require.Contains(t, env.Content, "Fernando Henrique Cardoso")
	require.False(t, env.GuardrailsTrigger)
}

func TestInvoke_CustomGuardrailBlocks(t *testing.T) {
	projects := newProjectStore(t, []*project.Project{testProject()})
	writer := newWriter(t)
	engine := guardrail.New(writer)
	adapter := &fakeAdapter{result: llm.Result{Content: "should never be called"}}
	orc := orchestrator.New(projects, fixedRuleSource{rules.NewSet()}, engine, adapter, writer, 5*time.Second)

	principal := &auth.Principal{ProjectID: "proj_real_001"}
	env, err := orc.Invoke(context.Background(), principal, orchestrator.Request{
		RequestID: "req-2",
		Model:     "gpt-4.1-nano",
		Messages:  []llm.Message{{Role: "user", Content: "Write python code to sort a list"}},
		CustomGuardrails: []rules.Rule{{
			RuleID:   "no_python",
			Severity: rules.SeverityHigh,
			Action:   rules.ActionBlock,
			Patterns: map[string]string{"src": "(?i)python|def |import "},
			Enabled:  true,
		}},
	})

	require.NoError(t, err)
	require.False(t, env.Success)
	require.Equal(t, orchestrator.ReasonGuardrailBlocked, env.ReasonCode)
	require.Contains(t, env.TriggeredRules, "no_python")
}

func TestInvoke_InvalidCustomRegexIsValidationError(t *testing.T) {
	projects := newProjectStore(t, []*project.Project{testProject()})
	writer := newWriter(t)
	engine := guardrail.New(writer)
	adapter := &fakeAdapter{result: llm.Result{Content: "should never be called"}}
	orc := orchestrator.New(projects, fixedRuleSource{rules.NewSet()}, engine, adapter, writer, 5*time.Second)

	principal := &auth.Principal{ProjectID: "proj_real_001"}
	env, err := orc.Invoke(context.Background(), principal, orchestrator.Request{
		RequestID: "req-3",
		Model:     "gpt-4.1-nano",
		Messages:  []llm.Message{{Role: "user", Content: "hello"}},
		CustomGuardrails: []rules.Rule{{
			RuleID:   "bad",
			Severity: rules.SeverityLow,
			Action:   rules.ActionBlock,
			Patterns: map[string]string{"p": "("},
			Enabled:  true,
		}},
	})

	require.NoError(t, err)
	require.False(t, env.Success)
	require.Equal(t, orchestrator.ReasonValidationError, env.ReasonCode)
}

func TestInvoke_DisallowedModelIsPolicyBlocked(t *testing.T) {
	projects := newProjectStore(t, []*project.Project{testProject()})
	writer := newWriter(t)
	engine := guardrail.New(writer)
	adapter := &fakeAdapter{result: llm.Result{Content: "should never be called"}}
	orc := orchestrator.New(projects, fixedRuleSource{rules.NewSet()}, engine, adapter, writer, 5*time.Second)

	principal := &auth.Principal{ProjectID: "proj_real_001"}
	env, err := orc.Invoke(context.Background(), principal, orchestrator.Request{
		RequestID: "req-4",
		Model:     "gpt-9",
		Messages:  []llm.Message{{Role: "user", Content: "hello"}},
	})

	require.NoError(t, err)
	require.False(t, env.Success)
	require.Equal(t, orchestrator.ReasonPolicyBlocked, env.ReasonCode)
}

func TestInvoke_ProviderErrorIsFailSoft(t *testing.T) {
	projects := newProjectStore(t, []*project.Project{testProject()})
	writer := newWriter(t)
	engine := guardrail.New(writer)
	adapter := &fakeAdapter{err: reasoncode.ProviderError(errors.New("connection refused"))}
	orc := orchestrator.New(projects, fixedRuleSource{rules.NewSet()}, engine, adapter, writer, 5*time.Second)

	principal := &auth.Principal{ProjectID: "proj_real_001"}
	env, err := orc.Invoke(context.Background(), principal, orchestrator.Request{
		RequestID: "req-5",
		Model:     "gpt-4.1-nano",
		Messages:  []llm.Message{{Role: "user", Content: "hello"}},
	})

	require.NoError(t, err)
	require.False(t, env.Success)
	require.Equal(t, orchestrator.ReasonProviderError, env.ReasonCode)
}
