// Package audit provides SQLite-backed persistence of the task trail.
// Entries are appended as the task runs, so a crash leaves a valid prefix
// on disk rather than nothing.
package audit

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"taskpilot/internal/models"
)

// Store writes and reads the audit database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the audit database and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode keeps a reader (history command) from blocking the writer.
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		iterations INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		final_report TEXT,
		created_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS entries (
		task_id TEXT NOT NULL,
		iteration INTEGER NOT NULL,
		tool_name TEXT NOT NULL,
		params_hash TEXT NOT NULL,
		proposal TEXT NOT NULL,
		decision TEXT NOT NULL,
		outcome TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		PRIMARY KEY (task_id, iteration),
		FOREIGN KEY (task_id) REFERENCES tasks(id)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_task_id ON entries(task_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StartTask inserts the task row at the start of a run.
func (s *Store) StartTask(task *models.Task) error {
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, description, status, created_at) VALUES (?, ?, ?, ?)`,
		task.ID, task.Description, task.Status, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// AppendEntry persists one ledger entry as soon as the iteration finishes.
func (s *Store) AppendEntry(taskID string, entry models.LedgerEntry) error {
	proposal, err := json.Marshal(entry.Proposal)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}
	decision, err := json.Marshal(entry.Decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	outcome, err := json.Marshal(entry.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO entries (task_id, iteration, tool_name, params_hash, proposal, decision, outcome, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		taskID, entry.Iteration, entry.Proposal.ToolName, hashParams(entry.Proposal.Params),
		string(proposal), string(decision), string(outcome), entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// FinishTask records the terminal status and final timestamps.
func (s *Store) FinishTask(task *models.Task) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, iterations = ?, error = ?, final_report = ?, finished_at = ? WHERE id = ?`,
		task.Status, task.Iterations, task.Error, task.FinalReport, task.FinishedAt, task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID, or nil when absent.
func (s *Store) GetTask(id string) (*models.Task, error) {
	task := &models.Task{}
	var errMsg, finalReport sql.NullString
	var finishedAt sql.NullTime

	err := s.db.QueryRow(
		`SELECT id, description, status, iterations, error, final_report, created_at, finished_at FROM tasks WHERE id = ?`,
		id,
	).Scan(&task.ID, &task.Description, &task.Status, &task.Iterations, &errMsg, &finalReport, &task.CreatedAt, &finishedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	if errMsg.Valid {
		task.Error = errMsg.String
	}
	if finalReport.Valid {
		task.FinalReport = finalReport.String
	}
	if finishedAt.Valid {
		task.FinishedAt = &finishedAt.Time
	}
	return task, nil
}

// ListTasks returns the most recent tasks, newest first.
func (s *Store) ListTasks(limit int) ([]models.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, description, status, iterations, error, final_report, created_at, finished_at
		 FROM tasks ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		var errMsg, finalReport sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&task.ID, &task.Description, &task.Status, &task.Iterations, &errMsg, &finalReport, &task.CreatedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if errMsg.Valid {
			task.Error = errMsg.String
		}
		if finalReport.Valid {
			task.FinalReport = finalReport.String
		}
		if finishedAt.Valid {
			task.FinishedAt = &finishedAt.Time
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// EntriesForTask returns the full recorded trail of one task in iteration
// order.
func (s *Store) EntriesForTask(taskID string) ([]models.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT iteration, proposal, decision, outcome, timestamp FROM entries WHERE task_id = ? ORDER BY iteration ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var proposal, decision, outcome string
		var ts time.Time
		if err := rows.Scan(&entry.Iteration, &proposal, &decision, &outcome, &ts); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(proposal), &entry.Proposal); err != nil {
			return nil, fmt.Errorf("decode proposal: %w", err)
		}
		if err := json.Unmarshal([]byte(decision), &entry.Decision); err != nil {
			return nil, fmt.Errorf("decode decision: %w", err)
		}
		if err := json.Unmarshal([]byte(outcome), &entry.Outcome); err != nil {
			return nil, fmt.Errorf("decode outcome: %w", err)
		}
		entry.Timestamp = ts
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// hashParams creates a SHA256 hash of the proposal parameters so identical
// proposals can be correlated across tasks without storing them twice.
func hashParams(params map[string]any) string {
	data, err := json.Marshal(params)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
