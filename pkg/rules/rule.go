// Package rules implements the Rule Store: guardrail rules loaded once
// from a single file at startup, validated, and served as an immutable
// snapshot to the Guardrail Engine.
package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/jowpereira/bradax/pkg/store"
	"gopkg.in/yaml.v3"
)

// Category classifies the intent behind a rule.
type Category string

const (
	CategoryContentSafety Category = "content_safety"
	CategoryBusiness      Category = "business"
	CategoryCompliance    Category = "compliance"
	CategoryOther         Category = "other"
)

// Severity orders how serious a triggered rule is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:      3,
	SeverityCritical: 4,
}

// Rank returns severity's position in low < medium < high < critical;
// unrecognized severities rank below SeverityLow.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Action is the policy outcome a triggered rule calls for.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionFlag     Action = "flag"
	ActionSanitize Action = "sanitize"
	ActionBlock    Action = "block"
)

var actionRank = map[Action]int{
	ActionAllow:    0,
	ActionFlag:     1,
	ActionSanitize: 2,
	ActionBlock:    3,
}

// Rank orders actions under the dominance rule block > sanitize > flag > allow.
func (a Action) Rank() int {
	return actionRank[a]
}

// DominantAction returns the highest-ranked action among candidates,
// defaulting to ActionAllow for an empty set.
func DominantAction(candidates []Action) Action {
	dominant := ActionAllow
	for _, a := range candidates {
		if a.Rank() > dominant.Rank() {
			dominant = a
		}
	}
	return dominant
}

// Rule is a deterministic policy unit: keywords, regexes, whitelist,
// severity, and action.
type Rule struct {
	RuleID    string            `json:"rule_id" yaml:"rule_id"`
	Category  Category          `json:"category" yaml:"category"`
	Severity  Severity          `json:"severity" yaml:"severity"`
	Action    Action            `json:"action" yaml:"action"`
	Patterns  map[string]string `json:"patterns" yaml:"patterns"`
	Keywords  []string          `json:"keywords" yaml:"keywords"`
	Whitelist []string          `json:"whitelist" yaml:"whitelist"`
	Enabled   bool              `json:"enabled" yaml:"enabled"`
}

// Compiled is a Rule plus its precompiled alternation regex, built once
// at load time so request-path evaluation never compiles a pattern.
type Compiled struct {
	rule        Rule
	alternation *regexp.Regexp // nil if the rule has no patterns
	patternNames map[string]*regexp.Regexp
	keywordSet  map[string]struct{} // keywords ∪ pattern names, lowercased
	whitelist   []string            // lowercased
}

// Compile validates rule and builds its request-path evaluation state.
// It is exported so the Orchestrator can validate and compile
// caller-provided custom_guardrails the same way the store compiles its
// own rules, without caching them anywhere shared.
func Compile(r Rule) (*Compiled, error) {
	if r.RuleID == "" {
		return nil, fmt.Errorf("rules: rule_id must not be empty")
	}

	c := &Compiled{
		rule:         r,
		patternNames: make(map[string]*regexp.Regexp, len(r.Patterns)),
		keywordSet:   make(map[string]struct{}, len(r.Keywords)+len(r.Patterns)),
	}

	for _, w := range r.Whitelist {
		c.whitelist = append(c.whitelist, strings.ToLower(w))
	}
	for _, k := range r.Keywords {
		c.keywordSet[strings.ToLower(k)] = struct{}{}
	}

	if len(r.Patterns) > 0 {
		names := make([]string, 0, len(r.Patterns))
		for name := range r.Patterns {
			names = append(names, name)
		}
		alt := make([]string, 0, len(r.Patterns))
		for _, name := range names {
			expr := r.Patterns[name]
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("rules: rule %s pattern %s: %w", r.RuleID, name, err)
			}
			c.patternNames[name] = re
			alt = append(alt, "("+expr+")")
			c.keywordSet[strings.ToLower(name)] = struct{}{}
		}
		combined, err := regexp.Compile(strings.Join(alt, "|"))
		if err != nil {
			return nil, fmt.Errorf("rules: rule %s: combined alternation invalid: %w", r.RuleID, err)
		}
		c.alternation = combined
	}

	if r.Action == ActionSanitize && len(c.keywordSet) == 0 {
		return nil, fmt.Errorf("rules: rule %s has action=sanitize but no matchable keyword or pattern", r.RuleID)
	}

	return c, nil
}

// Rule returns the source rule this Compiled was built from.
func (c *Compiled) Rule() Rule { return c.rule }

// MatchesWhitelist reports whether any whitelist substring appears in
// content (case-insensitive). A whitelist match suppresses only this
// rule; it has no effect on any other rule.
func (c *Compiled) MatchesWhitelist(content string) bool {
	lower := strings.ToLower(content)
	for _, w := range c.whitelist {
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// MatchesKeyword reports whether any configured keyword, or the name of
// any configured pattern, appears in content (case-insensitive substring
// containment, Unicode case-folded).
func (c *Compiled) MatchesKeyword(content string) bool {
	lower := strings.ToLower(content)
	for k := range c.keywordSet {
		if k != "" && strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// MatchesPattern reports whether the rule's combined pattern alternation
// matches anywhere in content.
func (c *Compiled) MatchesPattern(content string) bool {
	if c.alternation == nil {
		return false
	}
	return c.alternation.MatchString(content)
}

// Sanitize replaces every keyword occurrence (case-insensitive) and every
// regex hit in content with the literal token [REDACTED]. It never
// mutates the input string (Go strings are immutable; this always
// returns a new string).
func (c *Compiled) Sanitize(content string) string {
	out := content
	if c.alternation != nil {
		out = c.alternation.ReplaceAllString(out, "[REDACTED]")
	}
	for k := range c.keywordSet {
		if k == "" {
			continue
		}
		out = replaceCaseInsensitive(out, k, "[REDACTED]")
	}
	return out
}

func replaceCaseInsensitive(s, substr, repl string) string {
	if substr == "" {
		return s
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(substr))
	return re.ReplaceAllString(s, repl)
}

// Set is the immutable, atomically-swapped collection of compiled rules
// served to the Guardrail Engine.
type Set struct {
	rules []*Compiled
}

// NewSet builds a Set directly from already-compiled rules. Used by the
// Orchestrator to compose a transient rule set (base snapshot plus
// caller-provided custom_guardrails) without ever writing into the
// shared store — and by tests that build rule sets in-process.
func NewSet(compiled ...*Compiled) *Set {
	return &Set{rules: compiled}
}

// Extend returns a new Set containing this set's rules plus extra,
// without mutating either input.
func (s *Set) Extend(extra ...*Compiled) *Set {
	combined := make([]*Compiled, 0, len(s.rules)+len(extra))
	combined = append(combined, s.rules...)
	combined = append(combined, extra...)
	return &Set{rules: combined}
}

// Rules exposes the compiled rules in load order for the engine to
// iterate; the returned slice must not be mutated.
func (s *Set) Rules() []*Compiled {
	return s.rules
}

// Store serves the active rule snapshot and reloads it only via
// explicit operator action.
type Store struct {
	path string

	mu   sync.RWMutex
	snap *Set
}

// Load reads path (JSON or YAML, detected by extension) and compiles
// every rule, failing fast on the first invalid regex or malformed
// sanitize rule.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads and recompiles the rule file, then atomically swaps
// the snapshot. Evaluations in flight keep using the snapshot they
// captured on entry: they never observe a torn mix of old and new rules.
func (s *Store) Reload() error {
	raw, err := readRules(s.path)
	if err != nil {
		return fmt.Errorf("rules: load %s: %w", s.path, err)
	}

	seen := make(map[string]struct{}, len(raw))
	compiledRules := make([]*Compiled, 0, len(raw))
	for _, r := range raw {
		if _, dup := seen[r.RuleID]; dup {
			return fmt.Errorf("rules: duplicate rule_id %q", r.RuleID)
		}
		seen[r.RuleID] = struct{}{}

		c, err := Compile(r)
		if err != nil {
			return err
		}
		compiledRules = append(compiledRules, c)
	}

	next := &Set{rules: compiledRules}
	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()
	return nil
}

// Snapshot returns the currently active, immutable rule set.
func (s *Store) Snapshot() *Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func readRules(path string) ([]Rule, error) {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return readYAMLRules(path)
	}
	var rules []Rule
	if err := store.ReadJSON(path, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func readYAMLRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("rules: invalid yaml: %w", err)
	}
	return rules, nil
}
