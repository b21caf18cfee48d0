package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/cdpr/internal/workspace"
)

// RunKind distinguishes stored evaluation types.
type RunKind string

const (
	RunGrid RunKind = "grid"
	RunHull RunKind = "hull"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one stored workspace evaluation. Summary and Payload hold the JSON
// encoded summary and full result.
type Run struct {
	ID        string          `json:"run_id"`
	Kind      RunKind         `json:"kind"`
	Robot     string          `json:"robot"`
	Archetype string          `json:"archetype"`
	Criterion string          `json:"criterion"`
	CreatedAt time.Time       `json:"created_at"`
	Duration  time.Duration   `json:"duration"`
	Summary   json.RawMessage `json:"summary"`
	Payload   json.RawMessage `json:"-"`
}

// Grid decodes the payload of a grid run.
func (r *Run) Grid() (*workspace.GridResult, error) {
	if r.Kind != RunGrid {
		return nil, fmt.Errorf("run %s is a %s run", r.ID, r.Kind)
	}
	var res workspace.GridResult
	if err := json.Unmarshal(r.Payload, &res); err != nil {
		return nil, fmt.Errorf("decode grid run %s: %w", r.ID, err)
	}
	return &res, nil
}

// Hull decodes the payload of a hull run.
func (r *Run) Hull() (*workspace.HullResult, error) {
	if r.Kind != RunHull {
		return nil, fmt.Errorf("run %s is a %s run", r.ID, r.Kind)
	}
	var res workspace.HullResult
	if err := json.Unmarshal(r.Payload, &res); err != nil {
		return nil, fmt.Errorf("decode hull run %s: %w", r.ID, err)
	}
	return &res, nil
}

// SaveGridRun stores a grid result and returns the new run.
func (db *DB) SaveGridRun(ctx context.Context, robotName string, res *workspace.GridResult, took time.Duration) (*Run, error) {
	return db.saveRun(ctx, RunGrid, robotName, res.Archetype, res.Criterion, res.Summary(), res, took)
}

// SaveHullRun stores a hull result and returns the new run.
func (db *DB) SaveHullRun(ctx context.Context, robotName string, res *workspace.HullResult, took time.Duration) (*Run, error) {
	return db.saveRun(ctx, RunHull, robotName, res.Archetype, res.Criterion, res.Summary(), res, took)
}

func (db *DB) saveRun(ctx context.Context, kind RunKind, robotName, archetype, criterion string, summary, payload any, took time.Duration) (*Run, error) {
	sum, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	run := &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Robot:     robotName,
		Archetype: archetype,
		Criterion: criterion,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Duration:  took.Truncate(time.Millisecond),
		Summary:   sum,
		Payload:   body,
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (run_id, kind, robot, archetype, criterion, created_at, duration_ms, summary, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Robot, run.Archetype, run.Criterion,
		run.CreatedAt.UnixMilli(), run.Duration.Milliseconds(), string(sum), string(body))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RunFilter narrows ListRuns; zero fields match everything.
type RunFilter struct {
	Robot string
	Kind  RunKind
	Limit int
}

// ListRuns returns run metadata and summaries, newest first. Payloads are
// not loaded.
func (db *DB) ListRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	query := `SELECT run_id, kind, robot, archetype, criterion, created_at, duration_ms, summary
		FROM runs WHERE 1=1`
	var args []any
	if f.Robot != "" {
		query += " AND robot = ?"
		args = append(args, f.Robot)
	}
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	query += " ORDER BY created_at DESC, run_id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                Run
			kind, summary    string
			createdMs, durMs int64
		)
		if err := rows.Scan(&r.ID, &kind, &r.Robot, &r.Archetype, &r.Criterion, &createdMs, &durMs, &summary); err != nil {
			return nil, err
		}
		r.Kind = RunKind(kind)
		r.CreatedAt = time.UnixMilli(createdMs).UTC()
		r.Duration = time.Duration(durMs) * time.Millisecond
		r.Summary = json.RawMessage(summary)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun loads one run including its payload.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("run id %q: %w", id, err)
	}
	var (
		r                   Run
		kind, summary, body string
		createdMs, durMs    int64
	)
	err := db.QueryRowContext(ctx, `
		SELECT run_id, kind, robot, archetype, criterion, created_at, duration_ms, summary, payload
		FROM runs WHERE run_id = ?`, id).
		Scan(&r.ID, &kind, &r.Robot, &r.Archetype, &r.Criterion, &createdMs, &durMs, &summary, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	r.Kind = RunKind(kind)
	r.CreatedAt = time.UnixMilli(createdMs).UTC()
	r.Duration = time.Duration(durMs) * time.Millisecond
	r.Summary = json.RawMessage(summary)
	r.Payload = json.RawMessage(body)
	return &r, nil
}

// DeleteRun removes a run.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
