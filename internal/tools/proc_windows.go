//go:build windows

package tools

import "os/exec"

// configureProcessGroup is a no-op on Windows; exec.CommandContext's default
// kill covers the spawned process.
func configureProcessGroup(cmd *exec.Cmd) {}
