package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExecuteCommand runs a shell command. The sandbox policy has already
// checked the executable against the allowlist and clamped the timeout by
// the time Invoke is called; the dispatcher enforces the deadline through
// ctx.
type ExecuteCommand struct {
	// WorkDir is the default working directory when the proposal does not
	// name one.
	WorkDir string
}

func (ExecuteCommand) Name() string { return "execute_command" }
func (ExecuteCommand) Kind() Kind   { return KindCommand }
func (ExecuteCommand) Description() string {
	return "Execute a shell command. Only allowlisted executables may run."
}

func (ExecuteCommand) Schema() Schema {
	return Schema{Params: []ParamSpec{
		{Name: "command", Type: TypeString, Required: true, Role: RoleCommand, Description: "The command line to execute"},
		{Name: "cwd", Type: TypeString, Role: RolePath, Description: "Working directory (optional)"},
		{Name: "timeout", Type: TypeInt, Role: RoleTimeout, Description: "Timeout in seconds"},
		{Name: "env", Type: TypeObject, Description: "Extra environment variables"},
	}}
}

func (t ExecuteCommand) Invoke(ctx context.Context, params map[string]any) (*Result, error) {
	command := StringParam(params, "command", "")
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = t.WorkDir
	if cwd := StringParam(params, "cwd", ""); cwd != "" {
		cmd.Dir = cwd
	}

	cmd.Env = os.Environ()
	for k, v := range ObjectParam(params, "env") {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	// Run the command in its own process group so cancellation kills the
	// whole tree, not just the shell.
	configureProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("exec: %w", runErr)
		}
		exitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	output := stdout.String()
	if s := stderr.String(); s != "" {
		output += "\nSTDERR:\n" + s
	}
	output = strings.TrimSpace(output)
	if output == "" {
		output = "(no output)"
	}

	if exitCode != 0 {
		return nil, fmt.Errorf("command exited with code %d: %s", exitCode, output)
	}
	return &Result{
		Output: output,
		Data: map[string]any{
			"command":   command,
			"exit_code": exitCode,
			"cwd":       cmd.Dir,
		},
	}, nil
}
