// Package ledger provides the append-only iteration history for one task.
package ledger

import (
	"errors"
	"time"

	"taskpilot/internal/models"
)

// ErrOutOfOrder is returned when an append would break the strictly
// increasing iteration sequence.
var ErrOutOfOrder = errors.New("ledger: entry iteration out of order")

// Ledger records every (proposal, decision, outcome) triple of a task run.
// Entries can only be appended, never mutated or removed. A Ledger is owned
// by a single execution loop and is not safe for concurrent use.
type Ledger struct {
	entries []models.LedgerEntry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append records the next iteration. The entry's Iteration must be exactly
// one past the current length; the timestamp is filled in if unset.
func (l *Ledger) Append(e models.LedgerEntry) error {
	if e.Iteration != len(l.entries)+1 {
		return ErrOutOfOrder
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	l.entries = append(l.entries, e)
	return nil
}

// Len returns the number of recorded iterations.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns the full ordered history. The returned slice is a copy;
// callers cannot reach the ledger's backing storage through it.
func (l *Ledger) Entries() []models.LedgerEntry {
	out := make([]models.LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Window returns the most recent n entries in order. n <= 0 returns the
// full history.
func (l *Ledger) Window(n int) []models.LedgerEntry {
	if n <= 0 || n >= len(l.entries) {
		return l.Entries()
	}
	out := make([]models.LedgerEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Last returns the most recent entry, or false when the ledger is empty.
func (l *Ledger) Last() (models.LedgerEntry, bool) {
	if len(l.entries) == 0 {
		return models.LedgerEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}
