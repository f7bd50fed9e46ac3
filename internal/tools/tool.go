// Package tools defines the tool capability contract and the builtin tools.
package tools

import "context"

// Kind classifies the side-effect category of a tool. The sandbox policy
// keys its rules off this classification.
type Kind string

const (
	KindFilesystem Kind = "filesystem"
	KindCommand    Kind = "command"
	KindHTTP       Kind = "http"
	KindSearch     Kind = "search"
	KindWorkflow   Kind = "workflow"
)

// ParamType is the expected primitive shape of a tool parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "integer"
	TypeBool   ParamType = "boolean"
	TypeObject ParamType = "object"
)

// Role marks parameters the sandbox policy must inspect: paths get scoped
// to the allowed directories, commands get matched against the allowlist,
// timeouts get clamped.
type Role string

const (
	RoleNone    Role = ""
	RolePath    Role = "path"
	RoleCommand Role = "command"
	RoleTimeout Role = "timeout"
)

// ParamSpec describes one tool parameter.
type ParamSpec struct {
	Name        string
	Type        ParamType
	Required    bool
	Role        Role
	Description string
}

// Schema describes a tool's parameters for validation and for the provider
// tool declarations sent to the reasoning backend.
type Schema struct {
	Params []ParamSpec
}

// JSONSchema renders the schema in the JSON-schema shape the LLM provider
// APIs expect.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Params))
	var required []string
	for _, p := range s.Params {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if p.Type == TypeObject {
			prop["additionalProperties"] = map[string]any{"type": "string"}
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Result is the payload a tool produces on success.
type Result struct {
	Output string
	Data   map[string]any
}

// Tool is one registered capability. Invoke must honor ctx cancellation and
// must report failures through the returned error, never by panicking.
type Tool interface {
	Name() string
	Description() string
	Kind() Kind
	Schema() Schema
	Invoke(ctx context.Context, params map[string]any) (*Result, error)
}

// --- Parameter access helpers ---

// StringParam returns params[key] as a string, or def when absent.
func StringParam(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// IntParam returns params[key] as an int, tolerating the float64 values
// JSON decoding produces.
func IntParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// BoolParam returns params[key] as a bool, or def when absent.
func BoolParam(params map[string]any, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}

// ObjectParam returns params[key] as a string map, or nil when absent.
func ObjectParam(params map[string]any, key string) map[string]string {
	raw, ok := params[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
