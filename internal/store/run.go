package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkale-dev/swarmd/internal/domain"
)

// RunStore is the append-only Postgres log of execution records.
// The runner's per-agent lock guarantees a single writer per agent,
// so appends need no locking beyond row atomicity.
type RunStore struct {
	db *pgxpool.Pool
}

func NewRunStore(db *pgxpool.Pool) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Append(ctx context.Context, rec *domain.ExecutionRecord) error {
	lines, err := json.Marshal(rec.LogLines)
	if err != nil {
		return err
	}
	var output []byte
	if rec.Output != nil {
		if output, err = json.Marshal(rec.Output); err != nil {
			return err
		}
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO runs (id, agent_id, started_at, finished_at, status, log_lines, output, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.AgentID, rec.StartedAt, rec.FinishedAt, rec.Status, lines, output, rec.Error,
	)
	return err
}

// Trim evicts the oldest records beyond keep, FIFO.
func (s *RunStore) Trim(ctx context.Context, agentID string, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.db.Exec(ctx,
		`DELETE FROM runs
		 WHERE agent_id = $1 AND id NOT IN (
			SELECT id FROM runs WHERE agent_id = $1
			ORDER BY started_at DESC, id DESC LIMIT $2
		 )`,
		agentID, keep,
	)
	return err
}

func (s *RunStore) ListByAgent(ctx context.Context, agentID string, limit int) ([]*domain.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	// Newest records win the limit; the page itself stays ascending.
	rows, err := s.db.Query(ctx,
		`SELECT id, agent_id, started_at, finished_at, status, log_lines, output, error
		 FROM (
			SELECT id, agent_id, started_at, finished_at, status, log_lines, output, error
			FROM runs WHERE agent_id = $1
			ORDER BY started_at DESC, id DESC LIMIT $2
		 ) latest
		 ORDER BY started_at, id`,
		agentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ExecutionRecord
	for rows.Next() {
		rec := &domain.ExecutionRecord{}
		var lines, output []byte
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.StartedAt, &rec.FinishedAt, &rec.Status, &lines, &output, &rec.Error); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(lines, &rec.LogLines); err != nil {
			return nil, err
		}
		if output != nil {
			if err := json.Unmarshal(output, &rec.Output); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestOutput is the durable fallback for the current-output slot:
// the output of the most recent SUCCESS run.
func (s *RunStore) LatestOutput(ctx context.Context, agentID string) (map[string]any, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT output FROM runs
		 WHERE agent_id = $1 AND status = $2
		 ORDER BY started_at DESC, id DESC LIMIT 1`,
		agentID, domain.RunSuccess,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var out map[string]any
	if raw != nil {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *RunStore) PurgeAgent(ctx context.Context, agentID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM runs WHERE agent_id = $1`, agentID)
	return err
}
