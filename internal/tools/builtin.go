package tools

// BuiltinRegistry registers the full builtin tool set. workDir is the
// default working directory for commands; workflowEndpoint is the external
// automation host for trigger_workflow.
func BuiltinRegistry(workDir, workflowEndpoint string) *Registry {
	r := NewRegistry()
	for _, t := range []Tool{
		ReadFile{},
		WriteFile{},
		DeleteFile{},
		ListDirectory{},
		ExecuteCommand{WorkDir: workDir},
		HTTPRequest{},
		WebSearch{},
		TriggerWorkflow{Endpoint: workflowEndpoint},
	} {
		// Names are compile-time constants; duplicates are impossible here.
		_ = r.Register(t)
	}
	return r
}
