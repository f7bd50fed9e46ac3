package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"taskpilot/internal/llm"
	"taskpilot/internal/models"
	"taskpilot/internal/tools"
)

// Completion sentinels the backend uses to end a task. Completed is only
// ever set by an explicit signal, never inferred.
const (
	completeSentinel = "TASK_COMPLETE:"
	failedSentinel   = "TASK_FAILED:"
)

const systemPrompt = `You are an autonomous agent that executes tasks on the user's machine.

Your capabilities:
- Read, write, delete and list files inside the sandboxed workspace
- Execute allowlisted shell commands
- Make HTTP requests and search the web (when enabled)
- Trigger external automation workflows

RULES:
1. Work ONLY on the given task. Do not start new tasks or touch unrelated files.
2. Propose exactly one tool call per turn and wait for its result.
3. If a step fails or is denied, adjust your approach; denials state the reason.
4. Verify your work before declaring the task done.

When the task is complete, respond with "` + completeSentinel + `" followed by a summary.
If you hit an unrecoverable error, respond with "` + failedSentinel + `" followed by details.`

// sentinelAfter returns the text following the sentinel, or ok=false when
// the sentinel is absent.
func sentinelAfter(text, sentinel string) (string, bool) {
	idx := strings.Index(text, sentinel)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(text[idx+len(sentinel):]), true
}

// encodeOutcome renders one recorded outcome in the stable single format
// the backend sees every turn. Self-correction depends on this phrasing
// not drifting between iterations.
func encodeOutcome(entry models.LedgerEntry) string {
	name := entry.Proposal.ToolName
	if name == "" {
		name = "(none)"
	}
	o := entry.Outcome
	var b strings.Builder
	if o.Success {
		fmt.Fprintf(&b, "tool %s (ok): %s", name, o.Output)
	} else {
		kind := string(o.ErrorKind)
		if kind == "" {
			kind = "error"
		}
		fmt.Fprintf(&b, "tool %s (error %s): %s", name, kind, o.Error)
	}
	if o.Truncated {
		b.WriteString("\n[output truncated]")
	}
	return b.String()
}

// encodeProposal renders the assistant turn that led to an outcome.
func encodeProposal(p models.ActionProposal) string {
	args, err := json.Marshal(p.Params)
	if err != nil {
		args = []byte("{}")
	}
	line := fmt.Sprintf("Calling %s(%s)", p.ToolName, args)
	if p.Rationale != "" {
		line = p.Rationale + "\n" + line
	}
	return line
}

// buildMessages assembles the conversation: the task text followed by the
// windowed ledger history as alternating assistant/user turns.
func buildMessages(taskText string, entries []models.LedgerEntry) []llm.Message {
	messages := []llm.Message{{
		Role:    "user",
		Content: fmt.Sprintf("Task: %s\n\nComplete this task step by step using the available tools.", taskText),
	}}
	for _, e := range entries {
		messages = append(messages,
			llm.Message{Role: "assistant", Content: encodeProposal(e.Proposal)},
			llm.Message{Role: "user", Content: encodeOutcome(e)},
		)
	}
	return messages
}

// toolDecls converts registered tools into provider declarations.
func toolDecls(list []tools.Tool) []llm.ToolDecl {
	decls := make([]llm.ToolDecl, 0, len(list))
	for _, t := range list {
		decls = append(decls, llm.ToolDecl{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema().JSONSchema(),
		})
	}
	return decls
}
