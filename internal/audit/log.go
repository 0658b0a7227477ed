package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Audit event types, one per pipeline milestone.
const (
	EventRunStarted       = "RUN_STARTED"
	EventRepoIngested     = "REPO_INGESTED"
	EventContextRetrieved = "CONTEXT_RETRIEVED"
	EventPlanGenerated    = "PLAN_GENERATED"
	EventPatchGenerated   = "PATCH_GENERATED"
	EventPatchApplied     = "PATCH_APPLIED"
	EventCheckExecuted    = "CHECK_EXECUTED"
	EventDecisionMade     = "DECISION_MADE"
	EventRunCompleted     = "RUN_COMPLETED"
)

const timeLayout = "2006-01-02 15:04:05"

// Event is a single audit-log entry.
type Event struct {
	ID        int64          `json:"id"`
	RunID     string         `json:"run_id"`
	Type      string         `json:"event_type"`
	Data      map[string]any `json:"event_data,omitempty"`
	Actor     string         `json:"actor"`
	CreatedAt string         `json:"created_at"`
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

// LogEvent appends an audit entry for the run. The data map is stored as
// JSON. The actor is always "system"; there is no interactive surface.
func (d *DB) LogEvent(runID, eventType string, data map[string]any) error {
	var payload sql.NullString
	if len(data) > 0 {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
		payload = sql.NullString{String: string(b), Valid: true}
	}
	_, err := d.conn.Exec(
		d.rebind(`INSERT INTO audit_log (run_id, event_type, event_data, actor, created_at)
		 VALUES (?, ?, ?, ?, ?)`),
		runID, eventType, payload, "system", now(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Trace returns all audit entries for a run in insertion order.
func (d *DB) Trace(runID string) ([]Event, error) {
	rows, err := d.conn.Query(
		d.rebind(`SELECT id, run_id, event_type, event_data, actor, created_at
		 FROM audit_log WHERE run_id = ? ORDER BY id`),
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit trace: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var data sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Type, &data, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &e.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// StartRun records a new run row.
func (d *DB) StartRun(runID, task, taskType, repoPath string) error {
	_, err := d.conn.Exec(
		d.rebind(`INSERT INTO runs (id, task, task_type, repo_path, status, created_at)
		 VALUES (?, ?, ?, ?, 'running', ?)`),
		runID, task, taskType, repoPath, now(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the terminal status and scores for a run.
func (d *DB) FinishRun(runID, status, decision string, quality, risk float64) error {
	_, err := d.conn.Exec(
		d.rebind(`UPDATE runs SET status = ?, decision = ?, quality_score = ?, risk_score = ?, completed_at = ?
		 WHERE id = ?`),
		status, decision, quality, risk, now(), runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// LogCheck records one check execution for a run.
func (d *DB) LogCheck(runID, checkName string, passed bool, errorCount, warningCount, durationMs int) error {
	_, err := d.conn.Exec(
		d.rebind(`INSERT INTO check_runs (run_id, check_name, passed, error_count, warning_count, duration_ms, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		runID, checkName, passed, errorCount, warningCount, durationMs, now(),
	)
	if err != nil {
		return fmt.Errorf("insert check run: %w", err)
	}
	return nil
}
