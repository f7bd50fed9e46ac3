// Package sandbox decides whether a proposed action may run. Evaluation is
// total and side-effect-free: a malicious or confused proposal is an
// expected input, and every denial is recoverable feedback for the
// reasoning backend, never a crash.
package sandbox

import (
	"fmt"
	"path/filepath"

	"github.com/kballard/go-shellquote"

	"taskpilot/internal/config"
	"taskpilot/internal/models"
	"taskpilot/internal/tools"
)

// Stable denial reasons. The backend's self-correction depends on these
// staying consistent between iterations.
const (
	ReasonUnknownTool     = "unknown tool"
	ReasonPathOutside     = "path outside sandbox"
	ReasonCommandBlocked  = "command not in allowed commands"
	ReasonHTTPDisabled    = "http requests disabled"
	ReasonSearchDisabled  = "web search disabled"
	ReasonInvalidParams   = "invalid parameters"
	ReasonUnparsableShell = "unparseable command line"
)

// Policy evaluates proposals against an immutable sandbox snapshot taken at
// task start. Config changes mid-run never affect an active task.
type Policy struct {
	registry *tools.Registry
	cfg      config.SandboxConfig
	baseDir  string

	allowedCmds map[string]struct{}
	allowedDirs []string
}

// New builds a policy from a sandbox snapshot. baseDir anchors relative
// paths (both proposal paths and relative allow-list entries); it is
// normally the workspace directory.
func New(registry *tools.Registry, cfg config.SandboxConfig, baseDir string) *Policy {
	abs, err := filepath.Abs(baseDir)
	if err == nil {
		baseDir = abs
	}

	cmds := make(map[string]struct{}, len(cfg.AllowedCommands))
	for _, c := range cfg.AllowedCommands {
		cmds[c] = struct{}{}
	}

	dirs := make([]string, 0, len(cfg.AllowedDirectories))
	for _, d := range cfg.AllowedDirectories {
		if !filepath.IsAbs(d) {
			d = filepath.Join(baseDir, d)
		}
		if resolved, err := normalizePath(d, baseDir); err == nil {
			d = resolved
		}
		dirs = append(dirs, filepath.Clean(d))
	}

	return &Policy{
		registry:    registry,
		cfg:         cfg,
		baseDir:     baseDir,
		allowedCmds: cmds,
		allowedDirs: dirs,
	}
}

// Evaluate applies the policy rules in order; the first failing rule
// denies. Approved proposals get back only the parameters the tool's schema
// declares, with timeouts already clamped.
func (p *Policy) Evaluate(proposal models.ActionProposal) models.SandboxDecision {
	tool, ok := p.registry.Get(proposal.ToolName)
	if !ok {
		return deny(fmt.Sprintf("%s: %q", ReasonUnknownTool, proposal.ToolName))
	}

	schema := tool.Schema()
	clamped, reason := p.filterParams(schema, proposal.Params)
	if reason != "" {
		return deny(reason)
	}

	switch tool.Kind() {
	case tools.KindCommand:
		if reason := p.checkCommand(schema, clamped); reason != "" {
			return deny(reason)
		}
		p.clampTimeouts(schema, clamped, true)
	case tools.KindHTTP, tools.KindWorkflow:
		if !p.cfg.HTTPRequestsEnabled {
			return deny(ReasonHTTPDisabled)
		}
		p.clampTimeouts(schema, clamped, false)
	case tools.KindSearch:
		if !p.cfg.WebSearchEnabled {
			return deny(ReasonSearchDisabled)
		}
	}

	if reason := p.checkPaths(schema, clamped); reason != "" {
		return deny(reason)
	}

	return models.SandboxDecision{Allowed: true, ClampedParams: clamped}
}

func deny(reason string) models.SandboxDecision {
	return models.SandboxDecision{Allowed: false, Reason: reason}
}

// filterParams validates the proposal's parameters against the schema and
// returns a copy containing only declared parameters. Shape mismatches are
// rejected rather than coerced.
func (p *Policy) filterParams(schema tools.Schema, params map[string]any) (map[string]any, string) {
	clamped := make(map[string]any, len(schema.Params))
	for _, spec := range schema.Params {
		v, present := params[spec.Name]
		if !present {
			if spec.Required {
				return nil, fmt.Sprintf("%s: missing required %q", ReasonInvalidParams, spec.Name)
			}
			continue
		}
		if !typeMatches(spec.Type, v) {
			return nil, fmt.Sprintf("%s: %q must be %s", ReasonInvalidParams, spec.Name, spec.Type)
		}
		clamped[spec.Name] = v
	}
	return clamped, ""
}

func typeMatches(t tools.ParamType, v any) bool {
	switch t {
	case tools.TypeString:
		_, ok := v.(string)
		return ok
	case tools.TypeInt:
		switch v.(type) {
		case int, int64:
			return true
		case float64:
			f := v.(float64)
			return f == float64(int64(f))
		}
		return false
	case tools.TypeBool:
		_, ok := v.(bool)
		return ok
	case tools.TypeObject:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

// checkCommand verifies the executable of every RoleCommand parameter
// against the allowlist. Matching is exact and case-sensitive on the
// executable name.
func (p *Policy) checkCommand(schema tools.Schema, params map[string]any) string {
	for _, spec := range schema.Params {
		if spec.Role != tools.RoleCommand {
			continue
		}
		raw, _ := params[spec.Name].(string)
		words, err := shellquote.Split(raw)
		if err != nil || len(words) == 0 {
			return ReasonUnparsableShell
		}
		executable := filepath.Base(words[0])
		if _, ok := p.allowedCmds[executable]; !ok {
			return fmt.Sprintf("%s: %q", ReasonCommandBlocked, executable)
		}
	}
	return ""
}

// clampTimeouts bounds every RoleTimeout parameter by the configured
// command ceiling. For command tools a missing timeout gets the ceiling
// itself, so the dispatcher always has a bound to enforce.
func (p *Policy) clampTimeouts(schema tools.Schema, params map[string]any, fillDefault bool) {
	max := p.cfg.MaxCommandTimeout
	if max <= 0 {
		return
	}
	for _, spec := range schema.Params {
		if spec.Role != tools.RoleTimeout {
			continue
		}
		requested, present := params[spec.Name]
		if !present {
			if fillDefault {
				params[spec.Name] = max
			}
			continue
		}
		if secs := asInt(requested); secs <= 0 || secs > max {
			params[spec.Name] = max
		}
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// checkPaths resolves every RolePath parameter and requires it to land
// inside one of the allowed directories. Symlinks are resolved first, so a
// link pointing outside the sandbox denies.
func (p *Policy) checkPaths(schema tools.Schema, params map[string]any) string {
	for _, spec := range schema.Params {
		if spec.Role != tools.RolePath {
			continue
		}
		raw, present := params[spec.Name]
		if !present {
			continue
		}
		path, _ := raw.(string)
		resolved, err := normalizePath(path, p.baseDir)
		if err != nil {
			return ReasonPathOutside
		}
		inside := false
		for _, dir := range p.allowedDirs {
			if withinDir(resolved, dir) {
				inside = true
				break
			}
		}
		if !inside {
			return ReasonPathOutside
		}
		// The tool operates on the resolved form; rewriting here keeps the
		// check and the effect on the same path.
		params[spec.Name] = resolved
	}
	return ""
}
