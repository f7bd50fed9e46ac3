package ledger

import (
	"testing"

	"taskpilot/internal/models"
)

func entry(iter int, tool string) models.LedgerEntry {
	return models.LedgerEntry{
		Iteration: iter,
		Proposal:  models.ActionProposal{ToolName: tool},
		Decision:  models.SandboxDecision{Allowed: true},
		Outcome:   models.ActionOutcome{Success: true},
	}
}

func TestAppendOrdering(t *testing.T) {
	l := New()

	if err := l.Append(entry(1, "read_file")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Append(entry(2, "write_file")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if l.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", l.Len())
	}

	// Skipping an index must fail
	if err := l.Append(entry(4, "read_file")); err != ErrOutOfOrder {
		t.Errorf("Expected ErrOutOfOrder, got %v", err)
	}
	// Re-appending an old index must fail
	if err := l.Append(entry(2, "read_file")); err != ErrOutOfOrder {
		t.Errorf("Expected ErrOutOfOrder, got %v", err)
	}
	if l.Len() != 2 {
		t.Errorf("Failed appends must not grow the ledger, got %d", l.Len())
	}
}

func TestAppendFillsTimestamp(t *testing.T) {
	l := New()
	if err := l.Append(entry(1, "execute_command")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	last, ok := l.Last()
	if !ok {
		t.Fatal("Last returned no entry")
	}
	if last.Timestamp.IsZero() {
		t.Error("Timestamp should be set on append")
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	l := New()
	l.Append(entry(1, "read_file"))

	got := l.Entries()
	got[0].Proposal.ToolName = "mutated"

	again := l.Entries()
	if again[0].Proposal.ToolName != "read_file" {
		t.Error("Entries must return a copy, not the backing slice")
	}
}

func TestWindow(t *testing.T) {
	l := New()
	for i := 1; i <= 5; i++ {
		if err := l.Append(entry(i, "read_file")); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	tests := []struct {
		n         int
		wantLen   int
		wantFirst int
	}{
		{n: 2, wantLen: 2, wantFirst: 4},
		{n: 5, wantLen: 5, wantFirst: 1},
		{n: 10, wantLen: 5, wantFirst: 1},
		{n: 0, wantLen: 5, wantFirst: 1},
		{n: -1, wantLen: 5, wantFirst: 1},
	}

	for _, tt := range tests {
		got := l.Window(tt.n)
		if len(got) != tt.wantLen {
			t.Errorf("Window(%d) length = %d, want %d", tt.n, len(got), tt.wantLen)
			continue
		}
		if got[0].Iteration != tt.wantFirst {
			t.Errorf("Window(%d) first iteration = %d, want %d", tt.n, got[0].Iteration, tt.wantFirst)
		}
	}
}

func TestLastEmpty(t *testing.T) {
	l := New()
	if _, ok := l.Last(); ok {
		t.Error("Last on empty ledger should report false")
	}
}
