// Package httpapi wires the Auth Service, LLM Orchestrator, and
// Telemetry Writer onto the HTTP surface described in §6.
package httpapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const invokeSchemaURL = "https://bradax.dev/schemas/invoke-request.schema.json"

const invokeSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["operation", "model", "payload", "project_id"],
  "properties": {
    "operation": {"enum": ["chat", "stream", "batch"]},
    "model": {"type": "string", "minLength": 1},
    "project_id": {"type": "string", "minLength": 1},
    "request_id": {"type": "string"},
    "payload": {
      "type": "object",
      "properties": {
        "messages": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["role", "content"],
            "properties": {
              "role": {"type": "string", "minLength": 1},
              "content": {"type": "string"}
            }
          }
        },
        "prompt": {"type": "string"},
        "max_tokens": {"type": "integer", "minimum": 0},
        "temperature": {"type": "number"}
      }
    },
    "custom_guardrails": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["rule_id"],
        "properties": {
          "rule_id": {"type": "string", "minLength": 1},
          "category": {"type": "string"},
          "severity": {"type": "string"},
          "action": {"enum": ["allow", "flag", "sanitize", "block"]},
          "patterns": {"type": "object"},
          "keywords": {"type": "array", "items": {"type": "string"}},
          "whitelist": {"type": "array", "items": {"type": "string"}},
          "enabled": {"type": "boolean"}
        }
      }
    }
  }
}`

// invokeSchema is compiled once at package init, mirroring the teacher's
// firewall compiler: a fixed schema resource added once, then reused by
// every request.
var invokeSchema = mustCompile(invokeSchemaURL, invokeSchemaDoc)

func mustCompile(url, doc string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(doc)); err != nil {
		panic(fmt.Sprintf("httpapi: invoke schema resource: %v", err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("httpapi: invoke schema compile: %v", err))
	}
	return compiled
}

// validateInvokeShape decodes raw into a generic value and checks it
// against invokeSchema before any typed unmarshaling happens, giving
// §4.3's custom-rule regex validation a companion structural check over
// the whole request body.
func validateInvokeShape(raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("httpapi: invalid json: %w", err)
	}
	if err := invokeSchema.Validate(v); err != nil {
		return fmt.Errorf("httpapi: request shape: %w", err)
	}
	return nil
}
